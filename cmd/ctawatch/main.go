package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"ctawatch/internal/config"
	"ctawatch/internal/discord"
	"ctawatch/internal/feed"
	"ctawatch/internal/store"
	"ctawatch/internal/watch"
	logx "ctawatch/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config yaml")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	log := logx.NewConsole(cfg.LogLevel)

	st, err := store.Open(store.Config{Path: cfg.DBPath, BusyTimeout: 5 * time.Second}, log.With(logx.String("component", "store")))
	if err != nil {
		log.Error("open alert store", logx.Err(err))
		os.Exit(1)
	}
	defer st.Close()

	client := feed.NewClient(cfg.FeedURL, cfg.Accessibility, log.With(logx.String("component", "feed")))
	dispatcher := discord.NewDispatcher(cfg.WebhookURL, cfg.PostDelay, log.With(logx.String("component", "discord")))
	if cfg.WebhookURL == "" {
		log.Warn("no webhook endpoints configured; notifications disabled")
	}

	watcher := watch.New(client, st, dispatcher, watch.Options{
		Interval:          cfg.Interval,
		NotifyOnProximity: cfg.NotifyOnProximity,
		NotifyOnRemoval:   cfg.NotifyOnRemoval,
	}, log.With(logx.String("component", "watch")))

	sched := watch.NewScheduler(watcher.RunCycle, cfg.Interval, log.With(logx.String("component", "sched")))
	if err := sched.Start(ctx); err != nil {
		log.Error("start scheduler", logx.Err(err))
		os.Exit(1)
	}

	// Hot reload of webhook endpoints and notification toggles.
	go func() {
		err := config.Watch(ctx, cfgPath, log.With(logx.String("component", "config")), func(c config.Config) {
			dispatcher.Apply(c.WebhookURL)
			watcher.Apply(watch.Options{
				Interval:          cfg.Interval, // poll interval is fixed at startup
				NotifyOnProximity: c.NotifyOnProximity,
				NotifyOnRemoval:   c.NotifyOnRemoval,
			})
		})
		if err != nil {
			log.Warn("config watch unavailable", logx.Err(err))
		}
	}()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	log.Info("ctawatch running", logx.Duration("interval", cfg.Interval))

	<-ctx.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	sched.Shutdown(stopCtx)
}
