package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AristidesAI/IBKR-AIHedge/internal/analysis"
	"github.com/AristidesAI/IBKR-AIHedge/internal/broker/gateway"
	"github.com/AristidesAI/IBKR-AIHedge/internal/config"
	"github.com/AristidesAI/IBKR-AIHedge/internal/fund"
	"github.com/AristidesAI/IBKR-AIHedge/internal/journal"
	"github.com/AristidesAI/IBKR-AIHedge/internal/logger"
	"github.com/AristidesAI/IBKR-AIHedge/internal/scheduler"
	"github.com/AristidesAI/IBKR-AIHedge/internal/session"

	"github.com/sirupsen/logrus"
)

func main() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	cfg, err := config.Load("configs")
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Runtime.Log.Level,
		Format:     cfg.Runtime.Log.Format,
		Output:     cfg.Runtime.Log.File,
		MaxSize:    cfg.Runtime.Log.MaxSize,
		MaxBackups: cfg.Runtime.Log.MaxBackups,
		MaxAge:     cfg.Runtime.Log.MaxAge,
		Compress:   cfg.Runtime.Log.Compress,
	})

	log.WithFields(logrus.Fields{
		"host":         cfg.Broker.Host,
		"port":         cfg.Broker.Port,
		"currency":     cfg.Trading.Currency,
		"initial_cash": cfg.Trading.InitialCash,
		"max_position": cfg.Trading.MaxPositionSize,
		"watchlist":    len(cfg.Trading.Watchlist),
		"trigger":      cfg.Schedule.TriggerTime,
	}).Info("starting hedge fund integration")

	if cfg.Analysis.URL == "" {
		log.Fatal("analysis.url is not configured")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transport := gateway.New(gateway.URL(cfg.Broker.Host, cfg.Broker.Port), cfg.Broker.ClientID, log)
	sess := session.New(session.Config{
		Currency:    cfg.Trading.Currency,
		Exchange:    cfg.Trading.Exchange,
		InitialCash: cfg.Trading.InitialCash,
	}, transport, log)

	// Startup connectivity is the one fatal failure: without a broker
	// connection there is nothing to run.
	if err := sess.Connect(ctx, cfg.Broker.ConnectTimeout); err != nil {
		log.WithError(err).Fatal("failed to connect to broker")
	}

	jrnl, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		log.WithError(err).Fatal("failed to open trade journal")
	}

	analyzer := analysis.NewHTTPClient(cfg.Analysis.URL, cfg.Analysis.Timeout)
	executor := fund.NewExecutor(sess, jrnl, log)
	f := fund.New(cfg, sess, analyzer, executor, log)

	sched, err := scheduler.New(cfg.Schedule.TriggerTime, cfg.Schedule.Timezone, cfg.Schedule.PollInterval, log)
	if err != nil {
		log.WithError(err).Fatal("failed to build scheduler")
	}

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		sched.Run(ctx, f.RunCycle)
	}()

	statusTicker := time.NewTicker(time.Minute)
	defer statusTicker.Stop()

	for {
		select {
		case <-sigCh:
			log.Info("shutdown signal received")
			cancel()
			<-schedDone
			if err := sess.Close(); err != nil {
				log.WithError(err).Warn("session close failed")
			}
			if err := jrnl.Close(); err != nil {
				log.WithError(err).Warn("journal close failed")
			}
			log.Info("integration stopped")
			return
		case <-statusTicker.C:
			report := f.PerformanceReport()
			if report.TotalTrades > 0 {
				log.WithFields(logrus.Fields{
					"total_return_pct": report.TotalReturnPct,
					"total_trades":     report.TotalTrades,
					"positions":        report.CurrentPositions,
					"cash":             report.CashBalance,
				}).Info("performance")
			}
		}
	}
}
