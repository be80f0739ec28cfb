package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akshayg/coach/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and the daily schedule",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	log := a.log
	cfg := a.cfg

	server := api.NewServer(cfg.Server, a.store, a.runner, a.archiver, a.registry, cfg.Metrics, log)

	scheduler, err := buildSchedule(a)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Info("portfolio coach up",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("cron", cfg.Schedule.Cron),
		zap.String("timezone", cfg.Schedule.Timezone),
	)

	go func() {
		if err := server.Start(); err != nil {
			log.Error("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(ctx)
}

// buildSchedule registers the daily pipeline run on a cron scheduler in the
// configured timezone.
func buildSchedule(a *app) (*cron.Cron, error) {
	loc, err := time.LoadLocation(a.cfg.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone: %w", err)
	}

	scheduler := cron.New(cron.WithLocation(loc))
	_, err = scheduler.AddFunc(a.cfg.Schedule.Cron, func() {
		now := time.Now().In(loc)
		if a.cfg.Schedule.SkipWeekends && isWeekend(now) {
			a.log.Info("skipping scheduled run on weekend", zap.String("day", now.Weekday().String()))
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if _, err := a.runner.Run(ctx); err != nil {
			a.log.Error("scheduled run failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("registering schedule: %w", err)
	}
	return scheduler, nil
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}
