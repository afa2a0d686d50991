package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serverbook/internal/admin"
	"serverbook/internal/audit"
	"serverbook/internal/booking"
	"serverbook/internal/config"
	"serverbook/internal/db"
	httpserver "serverbook/internal/http"
	"serverbook/internal/jobs"
	"serverbook/internal/logging"
	"serverbook/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if err := logging.Setup(cfg.LogLevel, cfg.LogFile); err != nil {
		log.WithError(err).Fatal("setup logging")
	}
	gin.SetMode(cfg.GinMode)

	gdb, err := db.Connect(cfg.DSN)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}
	if err := db.Migrate(gdb); err != nil {
		log.WithError(err).Fatal("migrate database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := seed.FirstSetup(ctx, gdb, seed.Admin{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	}); err != nil {
		log.WithError(err).Fatal("seed admin")
	}

	auditLog := audit.NewLogger(gdb, time.Now)
	bookingSvc := booking.NewService(gdb, auditLog, booking.WithLocation(cfg.Location()))
	adminSvc := admin.NewService(gdb, auditLog, bookingSvc)
	jobs.NewRunner(gdb, bookingSvc, adminSvc, cfg.JobInterval, cfg.SlotHorizonDays).Start(ctx)

	r := httpserver.NewRouter(httpserver.Deps{
		DB:        gdb,
		JWTSecret: cfg.JWTSecret,
		Audit:     auditLog,
		Booking:   bookingSvc,
		Admin:     adminSvc,
		Now:       time.Now,
	})
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.AppPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("🚀 Server listening on :%s", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
}
