package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/aminul-portfolio/stripe-revenue-intelligence/config"
	"github.com/aminul-portfolio/stripe-revenue-intelligence/pkg/logger"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one invocation and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("healthpanel", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintln(stderr, "usage: healthpanel [flags] watch|serve|once|wait")
		flags.PrintDefaults()
	}
	config.RegisterFlags(flags)

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	mode := modeWatch
	if flags.NArg() > 0 {
		mode = flags.Arg(0)
	}
	switch mode {
	case modeWatch, modeServe, modeOnce, modeWait:
	default:
		fmt.Fprintf(stderr, "unknown mode %q\n", mode)
		flags.Usage()
		return 2
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}

	// serve owns no terminal, the other modes draw the panel on stdout
	logOut := stderr
	if mode == modeServe {
		logOut = stdout
	}
	log := logger.NewWithWriter(logOut, cfg.Logging.Level, true, cfg.Server.Environment)

	a, err := newApp(cfg, log)
	if err != nil {
		log.Error("Failed to initialize panel", slog.Any("err", err))
		return 1
	}

	collectorCtx, stopCollector := context.WithCancel(context.Background())
	defer stopCollector()
	a.collector.Start(collectorCtx)

	switch mode {
	case modeServe:
		err = runServe(ctx, a)
	case modeOnce:
		err = runOnce(ctx, a, stdout)
	case modeWait:
		err = runWait(ctx, a, stdout)
	default:
		err = runWatch(ctx, a, stdin, stdout)
	}

	if err != nil {
		if errors.Is(err, errUnhealthy) {
			log.Warn("Service not healthy", slog.String("mode", mode), slog.Any("err", err))
		} else {
			log.Error("Panel failed", slog.String("mode", mode), slog.Any("err", err))
		}
		return 1
	}
	return 0
}
