package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/terraincognita07/sipwell/internal/models"
	"github.com/terraincognita07/sipwell/internal/security"
	"github.com/terraincognita07/sipwell/internal/services"
)

// Config is everything the process reads from the environment, validated
// once at startup. Anything invalid here is fatal; nothing re-validates
// at runtime.
type Config struct {
	BotToken        string
	WebhookSecret   string
	DBPath          string
	Port            string
	Location        *time.Location
	DefaultLanguage string
	LocalesDir      string

	SecretKey         string
	AdminPasswordHash string

	Periods         []services.Period
	CheckpointHours []int
	Policy          services.ReminderPolicy
	MaxDailyCount   int
	GoalBounds      services.GoalBounds
	AmountMaxLiters float64
}

// Load reads the environment (plus an optional .env file) into a
// validated Config.
func Load() (Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	location, err := time.LoadLocation(getEnv("TZ", "UTC"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid TZ: %w", err)
	}

	webhookSecret := strings.TrimSpace(os.Getenv("WEBHOOK_SECRET"))
	if webhookSecret == "" {
		webhookSecret, err = security.WebhookSecret()
		if err != nil {
			return Config{}, fmt.Errorf("generate webhook secret: %w", err)
		}
	}

	periods, err := parsePeriods(getEnv("PERIODS", ""))
	if err != nil {
		return Config{}, err
	}
	if _, err := services.NewPeriodTable(periods); err != nil {
		return Config{}, fmt.Errorf("invalid PERIODS: %w", err)
	}

	checkpoints, err := parseCheckpointHours(getEnv("CHECKPOINT_HOURS", "10,12,15,18,21"))
	if err != nil {
		return Config{}, err
	}

	minInterval, err := parseDuration("MIN_INTERVAL", 2*time.Hour)
	if err != nil {
		return Config{}, err
	}
	backoffWindow, err := parseDuration("BACKOFF_WINDOW", 45*time.Minute)
	if err != nil {
		return Config{}, err
	}

	backoffPolicy := services.BackoffPolicy(getEnv("BACKOFF_POLICY", string(services.BackoffResetInterval)))
	if !services.ValidBackoffPolicy(backoffPolicy) {
		return Config{}, fmt.Errorf("invalid BACKOFF_POLICY %q", backoffPolicy)
	}

	maxDaily, err := parsePositiveInt("MAX_DAILY_REMINDERS", 4)
	if err != nil {
		return Config{}, err
	}

	goalMin, err := parsePositiveFloat("GOAL_MIN", models.GoalMinLiters)
	if err != nil {
		return Config{}, err
	}
	goalMax, err := parsePositiveFloat("GOAL_MAX", models.GoalMaxLiters)
	if err != nil {
		return Config{}, err
	}
	if goalMax <= goalMin {
		return Config{}, fmt.Errorf("GOAL_MAX (%.2f) must exceed GOAL_MIN (%.2f)", goalMax, goalMin)
	}
	amountMax, err := parsePositiveFloat("AMOUNT_MAX", models.AmountMaxLiters)
	if err != nil {
		return Config{}, err
	}

	return Config{
		BotToken:        strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		WebhookSecret:   webhookSecret,
		DBPath:          getEnv("DB_PATH", filepath.Join("data", "sipwell.db")),
		Port:            getEnv("PORT", "8080"),
		Location:        location,
		DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "en"),
		LocalesDir:      getEnv("LOCALES_DIR", filepath.Join("internal", "i18n", "locales")),

		SecretKey:         strings.TrimSpace(os.Getenv("SECRET_KEY")),
		AdminPasswordHash: strings.TrimSpace(os.Getenv("ADMIN_PASSWORD_HASH")),

		Periods:         periods,
		CheckpointHours: checkpoints,
		Policy: services.ReminderPolicy{
			MinInterval:   minInterval,
			BackoffPolicy: backoffPolicy,
			BackoffWindow: backoffWindow,
		},
		MaxDailyCount:   maxDaily,
		GoalBounds:      services.GoalBounds{MinLiters: goalMin, MaxLiters: goalMax},
		AmountMaxLiters: amountMax,
	}, nil
}

// parsePeriods reads the "name=start-end:target" comma list, e.g.
// "morning=8-12:30,day=12-17:45,evening=17-22:25". An empty value means
// the stock schedule.
func parsePeriods(raw string) ([]services.Period, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return services.DefaultPeriods(), nil
	}

	parts := strings.Split(raw, ",")
	periods := make([]services.Period, 0, len(parts))
	for _, part := range parts {
		name, spec, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return nil, fmt.Errorf("invalid PERIODS entry %q: missing '='", part)
		}
		hours, target, found := strings.Cut(spec, ":")
		if !found {
			return nil, fmt.Errorf("invalid PERIODS entry %q: missing ':'", part)
		}
		startRaw, endRaw, found := strings.Cut(hours, "-")
		if !found {
			return nil, fmt.Errorf("invalid PERIODS entry %q: missing '-'", part)
		}

		start, err := strconv.Atoi(strings.TrimSpace(startRaw))
		if err != nil {
			return nil, fmt.Errorf("invalid PERIODS start in %q: %w", part, err)
		}
		end, err := strconv.Atoi(strings.TrimSpace(endRaw))
		if err != nil {
			return nil, fmt.Errorf("invalid PERIODS end in %q: %w", part, err)
		}
		percent, err := strconv.ParseFloat(strings.TrimSpace(target), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid PERIODS target in %q: %w", part, err)
		}

		periods = append(periods, services.Period{
			Name:          strings.TrimSpace(name),
			StartHour:     start,
			EndHour:       end,
			TargetPercent: percent,
		})
	}
	return periods, nil
}

func parseCheckpointHours(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	hours := make([]int, 0, len(parts))
	seen := make(map[int]bool, len(parts))
	for _, part := range parts {
		hour, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid CHECKPOINT_HOURS entry %q: %w", part, err)
		}
		if hour < 0 || hour > 23 {
			return nil, fmt.Errorf("CHECKPOINT_HOURS entry %d out of range", hour)
		}
		if seen[hour] {
			continue
		}
		seen[hour] = true
		hours = append(hours, hour)
	}
	if len(hours) == 0 {
		return nil, fmt.Errorf("CHECKPOINT_HOURS must not be empty")
	}
	return hours, nil
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return value, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return value, nil
}

func parsePositiveFloat(key string, fallback float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return value, nil
}

func getEnv(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
