package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/terraincognita07/sipwell/internal/api"
	"github.com/terraincognita07/sipwell/internal/bot"
	"github.com/terraincognita07/sipwell/internal/config"
	"github.com/terraincognita07/sipwell/internal/db"
	"github.com/terraincognita07/sipwell/internal/i18n"
	"github.com/terraincognita07/sipwell/internal/metrics"
	"github.com/terraincognita07/sipwell/internal/services"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server and the reminder scheduler",
		RunE:  runServe,
	}
}

func runServe(command *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.BotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	repos := db.NewRepositories(database)

	translator, err := i18n.NewManager(cfg.DefaultLanguage, cfg.LocalesDir)
	if err != nil {
		return fmt.Errorf("load locales: %w", err)
	}

	registry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(registry)

	clock := services.NewSystemClock(cfg.Location)
	periodTable, err := services.NewPeriodTable(cfg.Periods)
	if err != nil {
		return fmt.Errorf("build period table: %w", err)
	}
	engine := services.NewEngine(periodTable, cfg.Policy)

	// The scheduler dispatches through the chat handler and the handler's
	// profile service reschedules through the scheduler, so the notifier
	// is wired in last.
	scheduler := services.NewScheduler(repos.Users, repos.Intakes, engine, nil, clock, recorder, cfg.CheckpointHours, cfg.MaxDailyCount)
	profiles := services.NewProfileService(repos.Users, clock, scheduler, cfg.GoalBounds)
	intakes := services.NewIntakeService(repos.Users, repos.Intakes, clock, cfg.AmountMaxLiters)

	client := bot.NewClient(cfg.BotToken)
	botHandler := bot.NewHandler(client, profiles, intakes, translator, recorder, cfg.GoalBounds, cfg.AmountMaxLiters)
	scheduler.SetNotifier(botHandler)

	apiHandler, err := api.NewHandler(botHandler, profiles, repos.Users, cfg.WebhookSecret, cfg.SecretKey, cfg.AdminPasswordHash, registry)
	if err != nil {
		return fmt.Errorf("build api handler: %w", err)
	}

	app := fiber.New(fiber.Config{
		AppName:               "sipwell",
		DisableStartupMessage: true,
	})
	app.Use(fiberrecover.New())
	app.Use(fiberlogger.New())
	api.RegisterRoutes(app, apiHandler)

	ctx, stop := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.Listen(":" + cfg.Port)
	}()

	log.Printf("server: listening on :%s, webhook path /webhook/%s", cfg.Port, cfg.WebhookSecret)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	log.Println("server: shutting down")
	scheduler.CancelAll()
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
