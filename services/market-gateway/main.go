package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"otcmarket/core/events"
	nativecommon "otcmarket/native/common"
	"otcmarket/native/market"
	"otcmarket/observability/logging"
	"otcmarket/observability/metrics"
	"otcmarket/services/market-gateway/auth"
	"otcmarket/services/market-gateway/config"
	"otcmarket/services/market-gateway/models"
	"otcmarket/services/market-gateway/server"
	"otcmarket/state/registry"
	"otcmarket/storage/journal"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "market-gateway: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup("market-gateway", cfg.Env)

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logger.Error("database connection failed", "error", err.Error())
		os.Exit(1)
	}
	if err := models.AutoMigrate(db); err != nil {
		logger.Error("database migration failed", "error", err.Error())
		os.Exit(1)
	}

	jrnl, err := journal.Open(cfg.JournalPath)
	if err != nil {
		logger.Error("journal open failed", "error", err.Error())
		os.Exit(1)
	}
	defer jrnl.Close()

	adminAddr, err := auth.ParsePrincipal(cfg.Market.Admin)
	if err != nil {
		logger.Error("invalid admin principal", "error", err.Error())
		os.Exit(1)
	}
	admin := market.NewAdmin(adminAddr)
	allowlist := market.NewAllowlist(admin)
	if cfg.Market.AllowlistDisabled {
		if err := allowlist.SetDisabled(adminAddr, true); err != nil {
			logger.Error("allowlist configuration failed", "error", err.Error())
			os.Exit(1)
		}
	}
	for _, entry := range cfg.Market.Allowlist {
		registryAddr, err := auth.ParsePrincipal(entry)
		if err != nil {
			logger.Error("invalid allowlist entry", "entry", entry, "error", err.Error())
			os.Exit(1)
		}
		if err := allowlist.SetAllowed(adminAddr, registryAddr, true); err != nil {
			logger.Error("allowlist seeding failed", "entry", entry, "error", err.Error())
			os.Exit(1)
		}
	}

	engine := market.NewEngine()
	engine.SetState(registry.NewBook())
	engine.SetAdmin(admin)
	engine.SetAllowlist(allowlist)
	engine.SetEmitter(events.MultiEmitter{jrnl, metrics.NewObserver(metrics.Market())})

	srv := server.New(server.Config{
		Engine:    engine,
		Admin:     admin,
		Allowlist: allowlist,
		DB:        db,
		Journal:   jrnl,
		Log:       logger,
		JWTSecret: []byte(cfg.JWTSecret),
		Quota: nativecommon.Quota{
			MaxRequestsPerEpoch: cfg.Market.RequestsPerMin,
			EpochSeconds:        60,
		},
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("market-gateway listening", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil {
		logger.Error("http server stopped", "error", err.Error())
		os.Exit(1)
	}
}
