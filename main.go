package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"tradehub/config"
	"tradehub/internal/hub"
	"tradehub/internal/metrics"
	"tradehub/internal/notify"
	"tradehub/internal/store"
	"tradehub/internal/trader"
	"tradehub/internal/web"
	"tradehub/logger"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Tradehub.Name,
		"version": cfg.Tradehub.Version,
	}).Info("starting tradehub")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}
	if cfg.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.CloudWatch.Region, cfg.CloudWatch.Namespace, cfg.CloudWatch.Dashboard)
	}
	metrics.Init()

	st := store.NewMemoryStore(cfg.Web.PageSize)
	log.AddHook(st)

	engine := trader.NewEngine(trader.Config{
		QuoteAsset:    cfg.Trading.QuoteAsset,
		VirtualFunds:  decimal.NewFromFloat(cfg.Trading.VirtualFunds),
		BNBFreeFloat:  cfg.Trading.BNBFreeFloat,
		MarginEnabled: cfg.Trading.MarginEnabled,
	}, st)

	if cfg.Notifications.Enabled {
		notifier, err := notify.NewEmailNotifier(notify.Config{
			Host:          cfg.Notifications.SMTPHost,
			Port:          cfg.Notifications.SMTPPort,
			Username:      cfg.Notifications.SMTPUsername,
			Password:      cfg.Notifications.SMTPPassword,
			From:          cfg.Notifications.From,
			To:            cfg.Notifications.To,
			RatePerMinute: cfg.Notifications.RatePerMinute,
		})
		if err != nil {
			log.WithError(err).Error("Failed to configure notifications")
			os.Exit(1)
		}
		engine.SetNotifier(notifier)
	}

	transport := hub.NewWSTransport(cfg.Hub.URL, cfg.Tradehub.Version, cfg.Hub.APIKey)
	router := hub.NewRouter(transport, engine.Handlers(), cfg.Hub.APIKey, cfg.Hub.TradedChannel, func(err error) {
		log.WithComponent("main").WithError(err).Error("hub connection failed, shutting down")
		cancel()
	})
	engine.SetEmitter(router)

	server := web.NewServer(web.Config{
		AppName:       cfg.Tradehub.Name,
		Port:          cfg.Web.Port,
		Password:      cfg.Web.Password,
		Precision:     cfg.Web.Precision,
		MaxColors:     cfg.Web.MaxColors,
		PageSize:      cfg.Web.PageSize,
		GraphDays:     cfg.Web.GraphDays,
		BNBFreeFloat:  cfg.Trading.BNBFreeFloat,
		MarginEnabled: cfg.Trading.MarginEnabled,
	}, engine, st)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := router.Run(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("hub router stopped")
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Run(ctx); err != nil {
			log.WithError(err).Error("report server failed")
			cancel()
		}
	}()

	log.Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown")
	cancel()
	wg.Wait()
	st.Close()
	log.Info("shutdown complete")
}
