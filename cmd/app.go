package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"os"

	"github.com/aminul-portfolio/stripe-revenue-intelligence/config"
	"github.com/aminul-portfolio/stripe-revenue-intelligence/internal/clipboard"
	"github.com/aminul-portfolio/stripe-revenue-intelligence/internal/dom"
	"github.com/aminul-portfolio/stripe-revenue-intelligence/internal/healthpoller"
	"github.com/aminul-portfolio/stripe-revenue-intelligence/internal/metrics"
)

// app holds the wired components shared by every mode.
type app struct {
	cfg       *config.Config
	log       *slog.Logger
	doc       *dom.Document
	poller    *healthpoller.Poller
	collector *metrics.Collector
	clipboard clipboard.Clipboard
}

func newApp(cfg *config.Config, log *slog.Logger) (*app, error) {
	doc, err := loadPage(cfg.Target.Page)
	if err != nil {
		return nil, err
	}

	// same-origin credentials: cookies set by the service ride along
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	fetcher := healthpoller.NewFetcher(&http.Client{Jar: jar}, log)

	collector := metrics.NewCollector(cfg.Metrics.BufferSize, log)
	clip := clipboard.New(cfg.Clipboard.Backend)

	poller, err := healthpoller.New(doc, fetcher, log, healthpoller.Options{
		BaseURL:   cfg.Target.BaseURL,
		Timeout:   cfg.TargetTimeout(),
		Clipboard: clip,
		Collector: collector,
	})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:       cfg,
		log:       log,
		doc:       doc,
		poller:    poller,
		collector: collector,
		clipboard: clip,
	}, nil
}

// loadPage parses the configured page, or the built-in one when path is empty.
func loadPage(path string) (*dom.Document, error) {
	if path == "" {
		return dom.ParseString(healthpoller.DefaultPage())
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer f.Close()

	doc, err := dom.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse page %s: %w", path, err)
	}
	return doc, nil
}
