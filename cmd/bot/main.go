package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"announcebot/internal/announce"
	"announcebot/internal/config"
	"announcebot/internal/eventbus"
	"announcebot/internal/logging"
	"announcebot/internal/notifier/telegram"
	"announcebot/internal/scheduler"
	"announcebot/internal/store"
	"announcebot/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.json", "path to config file (json or yaml)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string) error {
	bootLog := logx.NewConsole("info")

	mgr := config.NewManager(cfgPath)
	mgr.SetLogger(bootLog)
	mgr.SetValidator(validate)
	cfg, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := validate(ctx, cfg); err != nil {
		return err
	}

	logSvc, log := logging.New(loggingConfig(cfg))
	defer logSvc.Close()

	st, err := store.Open(storeConfig(cfg), bootLog.With(logx.String("component", "store")))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	tgCfg, err := telegramConfig(cfg)
	if err != nil {
		return err
	}
	tg, err := telegram.New(tgCfg, log.With(slog.String("component", "telegram")))
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	bus := eventbus.New()
	engine := scheduler.New(schedulerConfig(cfg), st, tg, tg, bus, log.With(slog.String("component", "scheduler")))
	if err := engine.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize scheduler: %w", err)
	}

	// Audit trail: lifecycle events from the engine, one line each.
	events, unsub := bus.Subscribe(64)
	defer unsub()
	go func() {
		audit := log.With(slog.String("component", "audit"))
		for e := range events {
			attrs := []any{slog.String("id", e.ID), slog.Time("time", e.Time)}
			if a, ok := e.Data.(announce.Announcement); ok {
				attrs = append(attrs, slog.String("what", a.Summary()))
			}
			audit.Info(e.Type, attrs...)
		}
	}()

	// Hot reload: logging, delivery and scheduler settings follow the
	// config file.
	sub := mgr.Subscribe(1)
	defer mgr.Unsubscribe(sub)
	go func() { _ = mgr.Watch(ctx) }()
	go func() {
		for next := range sub {
			logSvc.Apply(loggingConfig(next))
			if tc, err := telegramConfig(next); err == nil {
				tg.Apply(tc)
			} else {
				log.Warn("telegram config rejected", slog.Any("err", err))
			}
			engine.Apply(schedulerConfig(next))
		}
	}()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	log.Info("announcebot running", slog.String("config", cfgPath))

	<-ctx.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	engine.Stop(stopCtx)
	return nil
}

func validate(ctx context.Context, cfg *config.Config) error {
	_ = ctx
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	if strings.TrimSpace(cfg.Scheduler.Channel) == "" {
		return errors.New("scheduler.channel is required")
	}
	if strings.TrimSpace(cfg.Store.Path) == "" {
		return errors.New("store.path is required")
	}
	if _, err := config.ParseDurationField("telegram.api_timeout", cfg.Telegram.APITimeout); err != nil {
		return err
	}
	if _, err := config.ParseDurationField("store.busy_timeout", cfg.Store.BusyTimeout); err != nil {
		return err
	}
	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: %w", err)
		}
	}
	return nil
}

func loggingConfig(cfg *config.Config) logging.Config {
	return logging.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logging.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func storeConfig(cfg *config.Config) store.Config {
	busy, _ := config.ParseDurationField("store.busy_timeout", cfg.Store.BusyTimeout)
	return store.Config{
		Driver:      cfg.Store.Driver,
		Path:        cfg.Store.Path,
		BusyTimeout: busy,
	}
}

func telegramConfig(cfg *config.Config) (telegram.Config, error) {
	timeout, err := config.ParseDurationField("telegram.api_timeout", cfg.Telegram.APITimeout)
	if err != nil {
		return telegram.Config{}, err
	}
	return telegram.Config{
		Token:      cfg.Telegram.Token,
		APITimeout: timeout,
		RatePerSec: cfg.Telegram.RatePerSec,
		Audiences:  cfg.Telegram.Audiences,
	}, nil
}

func schedulerConfig(cfg *config.Config) scheduler.Config {
	return scheduler.Config{
		Channel:  cfg.Scheduler.Channel,
		Timezone: cfg.Scheduler.Timezone,
	}
}
