package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"daycal/internal/capture"
	"daycal/internal/clock"
	"daycal/internal/config"
	"daycal/internal/ics"
	appLog "daycal/internal/log"
	"daycal/internal/model"
	"daycal/internal/session"
	"daycal/internal/state"
	"daycal/internal/termview"
	"daycal/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	debug      bool
	print      bool
	snapshot   bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	appLog.Info("daycal starting", "version", "0.1.0")
	appLog.Info("effective config",
		"listen", conf.Listen,
		"week_start", conf.WeekStart,
		"start_date", conf.StartDate,
		"seed_events", len(conf.SeedEvents),
		"seed_ics", conf.SeedICS,
		"idle_minutes", conf.Session.IdleMinutes,
		"max_sessions", conf.Session.MaxSessions,
		"print", flags.print,
		"snapshot", flags.snapshot,
	)

	clk := clock.NewSystem()
	newState, err := sessionFactory(conf, clk)
	if err != nil {
		appLog.Error("failed to prepare initial state", err)
		os.Exit(1)
	}

	if flags.print {
		fmt.Println(termview.Render(newState().View(), termview.DefaultOptions()))
		return
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, conf, flags, newState, clk); err != nil {
		appLog.Error("daycal failed", err)
		os.Exit(1)
	}
	appLog.Info("daycal exiting")
}

// sessionFactory resolves the start cursor and seed events once; every new
// browser session starts from a copy of them.
func sessionFactory(conf *config.Config, clk clock.Clock) (session.Factory, error) {
	seed := append([]model.Event(nil), conf.SeedEvents...)
	if conf.SeedICS != "" {
		extra, err := ics.LoadFile(conf.SeedICS)
		if err != nil {
			return nil, err
		}
		seed = append(seed, extra...)
	}
	grid := conf.Grid()

	// Validate once up front; "today" is re-read per session.
	if _, err := conf.StartCursor(clk); err != nil {
		return nil, err
	}
	return func() *state.Calendar {
		cursor, _ := conf.StartCursor(clk)
		return state.New(cursor, seed, grid)
	}, nil
}

func run(ctx context.Context, conf *config.Config, flags flagConfig, newState session.Factory, clk clock.Clock) error {
	store := session.NewStore(newState, clk, conf.Session.MaxSessions)
	sweeper, err := store.StartSweeper(conf.Session.Sweep, conf.IdleTimeout())
	if err != nil {
		return err
	}
	defer sweeper.Stop()

	srv, err := web.NewServer(conf, store, clk, flags.debug)
	if err != nil {
		return err
	}

	if !flags.snapshot {
		return srv.ListenAndServe(ctx)
	}

	// Snapshot mode: serve just long enough to capture one frame.
	ln, err := net.Listen("tcp", conf.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", conf.Listen, err)
	}
	serveCtx, stop := context.WithCancel(ctx)
	defer stop()
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(serveCtx, ln) }()

	opts := captureOptions(conf, ln.Addr().String())
	captureErr := capture.PagePNG(ctx, opts)
	if captureErr == nil {
		appLog.Info("snapshot written", "path", opts.OutputPath)
	}

	stop()
	return errors.Join(captureErr, <-errCh)
}

// captureOptions points the headless browser at addr, passing Basic Auth
// credentials when the server requires them.
func captureOptions(conf *config.Config, addr string) capture.Options {
	opts := capture.Options{
		URL:        "http://" + addr + "/",
		OutputPath: conf.Capture.Output,
		Width:      conf.Capture.Width,
		Height:     conf.Capture.Height,
		Timeout:    time.Duration(conf.Capture.TimeoutSeconds) * time.Second,
	}
	if conf.BasicAuthEnabled() {
		cred := conf.BasicAuth.Username + ":" + conf.BasicAuth.Password
		opts.Headers = map[string]string{
			"Authorization": "Basic " + base64.StdEncoding.EncodeToString([]byte(cred)),
		}
	}
	return opts
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./daycal.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&cfg.print, "print", false, "Render the initial calendar to the terminal and exit")
	flag.BoolVar(&cfg.snapshot, "snapshot", false, "Capture the rendered page to the configured PNG path and exit")

	flag.Parse()

	return cfg
}
