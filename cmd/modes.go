package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aminul-portfolio/stripe-revenue-intelligence/internal/deadline"
	"github.com/aminul-portfolio/stripe-revenue-intelligence/internal/healthpoller"
	"github.com/aminul-portfolio/stripe-revenue-intelligence/internal/httpserver"
)

const (
	modeWatch = "watch"
	modeServe = "serve"
	modeOnce  = "once"
	modeWait  = "wait"
)

var (
	errNoPanel   = errors.New("page has no health panel")
	errUnhealthy = errors.New("service not healthy")
)

// runOnce refreshes a single time and prints the result.
func runOnce(ctx context.Context, a *app, out io.Writer) error {
	if !a.poller.Bind(ctx) {
		return errNoPanel
	}
	if err := a.poller.WriteText(out); err != nil {
		return err
	}
	if a.poller.State().Phase != healthpoller.PhaseHealthy {
		return errUnhealthy
	}
	return nil
}

// runWait refreshes until the service reports healthy or the deadline passes.
func runWait(ctx context.Context, a *app, out io.Writer) error {
	if !a.poller.Active() {
		return errNoPanel
	}

	outcome := deadline.Poll(ctx, a.cfg.WaitDeadline(), a.cfg.WaitInterval(), func(ctx context.Context) bool {
		return a.poller.Refresh(ctx).OK
	})

	a.log.Info("Wait finished",
		slog.Bool("healthy", outcome.Done()),
		slog.Int("attempts", outcome.Attempts),
		slog.Duration("elapsed", outcome.Elapsed),
		slog.Bool("expired", outcome.Expired))

	if err := a.poller.WriteText(out); err != nil {
		return err
	}

	switch {
	case outcome.Done():
		return nil
	case outcome.Canceled:
		return ctx.Err()
	default:
		return fmt.Errorf("%w after %d attempts in %s", errUnhealthy, outcome.Attempts, outcome.Elapsed)
	}
}

// runWatch drives the panel from the terminal: r refreshes, c or C copies,
// q quits. Every command redraws the panel.
func runWatch(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !a.poller.Bind(ctx) {
		return errNoPanel
	}
	if err := drawWatch(a, out); err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}

			switch strings.TrimSpace(line) {
			case "r":
				a.poller.Trigger(ctx, healthpoller.AttrRefresh)
			case "c", "C":
				if res := a.poller.Copy(ctx); res.OK {
					fmt.Fprintln(out, "Copied JSON to clipboard.")
				} else {
					fmt.Fprintf(out, "Copy failed: %v\n", res.Err)
				}
				continue
			case "q":
				return nil
			case "":
				continue
			default:
				fmt.Fprintf(out, "unknown command %q\n", line)
				continue
			}

			if err := drawWatch(a, out); err != nil {
				return err
			}
		}
	}
}

func drawWatch(a *app, out io.Writer) error {
	fmt.Fprintln(out)
	if err := a.poller.WriteText(out); err != nil {
		return err
	}
	_, err := fmt.Fprintln(out, "\n[r] refresh  [c] copy JSON  [q] quit")
	return err
}

// writeSlack is the time a refresh response gets on top of the fetch.
const writeSlack = 10 * time.Second

// writeTimeoutFor returns a write timeout long enough for a refresh that
// waits the full fetch timeout.
func writeTimeoutFor(fetchTimeout time.Duration) time.Duration {
	if fetchTimeout <= 0 {
		fetchTimeout = healthpoller.DefaultTimeout
	}
	return max(httpserver.DefaultWriteTimeout, fetchTimeout+writeSlack)
}

// runServe exposes the panel over HTTP until ctx ends.
func runServe(ctx context.Context, a *app) error {
	if !a.poller.Bind(ctx) {
		return errNoPanel
	}

	srv, err := httpserver.New(a.cfg.Server.Address, setupRouter(a.poller, a.collector, a.log),
		httpserver.WithWriteTimeout(writeTimeoutFor(a.cfg.TargetTimeout())))
	if err != nil {
		return err
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Start()
	}()
	a.log.Info("Health panel listening",
		slog.String("address", srv.Addr()),
		slog.String("target", a.poller.HealthURL()))

	select {
	case <-ctx.Done():
		a.log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			a.log.Error("Error during shutdown", slog.Any("err", err))
		}
		return nil
	case err := <-srvErrCh:
		return err
	}
}
