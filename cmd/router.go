package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aminul-portfolio/stripe-revenue-intelligence/internal/healthpoller"
	"github.com/aminul-portfolio/stripe-revenue-intelligence/internal/httpserver"
	"github.com/aminul-portfolio/stripe-revenue-intelligence/internal/metrics"
)

// panelHandler exposes the poller through its page triggers, the way a
// browser would drive it.
type panelHandler struct {
	*healthpoller.Poller
}

func (p panelHandler) Refresh(ctx context.Context) bool {
	return p.Trigger(ctx, healthpoller.AttrRefresh)
}

func (p panelHandler) Copy(ctx context.Context) (found, copied bool, err error) {
	res, found := p.CopyVia(ctx, healthpoller.AttrCopy)
	return found, res.OK, res.Err
}

func setupRouter(poller *healthpoller.Poller, metricsCollector *metrics.Collector, log *slog.Logger) http.Handler {
	return httpserver.NewRouter(panelHandler{poller}, metricsCollector, log)
}
