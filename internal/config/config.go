package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every runtime setting of the automation service.
type Config struct {
	DatabaseURL   string
	APIPort       string
	Env           string
	LogLevel      string
	LogFile       string
	RunMigrations bool

	Timezone         *time.Location
	SchedulerTimeout time.Duration
	DispatchTimeout  time.Duration

	WorkerEnabled bool
	ScheduleCron  string

	NATSURL            string
	NATSSubject        string
	NATSResultsSubject string
	NATSQueue          string

	BackfillRuleName string
	BackfillDays     int
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("API_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("RUN_MIGRATIONS", false)
	v.SetDefault("AUTOMATION_TIMEZONE", "UTC")
	v.SetDefault("SCHEDULER_TIMEOUT", "2m")
	v.SetDefault("DISPATCH_TIMEOUT", "30s")
	v.SetDefault("WORKER_ENABLED", false)
	v.SetDefault("SCHEDULE_CRON", "0 6 * * *")
	v.SetDefault("NATS_URL", "")
	v.SetDefault("NATS_SUBJECT", "automation.events")
	v.SetDefault("NATS_RESULTS_SUBJECT", "automation.results")
	v.SetDefault("NATS_QUEUE", "automation-engine")
	v.SetDefault("BACKFILL_RULE_NAME", "All Status -> invoice Chase")
	v.SetDefault("BACKFILL_DAYS", 5)
}

// Load reads .env (if present), an optional config file and the environment.
// Environment variables win over the config file.
func Load(configPath string) (*Config, error) {
	// .env is optioneel; in productie komt alles uit de omgeving
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	loc, err := time.LoadLocation(v.GetString("AUTOMATION_TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTOMATION_TIMEZONE: %w", err)
	}

	schedulerTimeout, err := time.ParseDuration(v.GetString("SCHEDULER_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_TIMEOUT: %w", err)
	}
	dispatchTimeout, err := time.ParseDuration(v.GetString("DISPATCH_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid DISPATCH_TIMEOUT: %w", err)
	}

	backfillDays := v.GetInt("BACKFILL_DAYS")
	if backfillDays <= 0 {
		return nil, fmt.Errorf("BACKFILL_DAYS must be positive, got %d", backfillDays)
	}

	return &Config{
		DatabaseURL:        v.GetString("DATABASE_URL"),
		APIPort:            v.GetString("API_PORT"),
		Env:                strings.ToLower(v.GetString("ENV")),
		LogLevel:           strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFile:            v.GetString("LOG_FILE"),
		RunMigrations:      v.GetBool("RUN_MIGRATIONS"),
		Timezone:           loc,
		SchedulerTimeout:   schedulerTimeout,
		DispatchTimeout:    dispatchTimeout,
		WorkerEnabled:      v.GetBool("WORKER_ENABLED"),
		ScheduleCron:       v.GetString("SCHEDULE_CRON"),
		NATSURL:            v.GetString("NATS_URL"),
		NATSSubject:        v.GetString("NATS_SUBJECT"),
		NATSResultsSubject: v.GetString("NATS_RESULTS_SUBJECT"),
		NATSQueue:          v.GetString("NATS_QUEUE"),
		BackfillRuleName:   v.GetString("BACKFILL_RULE_NAME"),
		BackfillDays:       backfillDays,
	}, nil
}
