package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"project-automation-api/internal/api"
	"project-automation-api/internal/automation"
	"project-automation-api/internal/config"
	"project-automation-api/internal/database"
	"project-automation-api/internal/domain"
	"project-automation-api/internal/events"
	"project-automation-api/internal/logger"
	"project-automation-api/internal/store"
	"project-automation-api/internal/worker"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "automation-api",
		Short:         "Project automation rule engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")

	cmd.AddCommand(serveCmd(&configPath), migrateCmd(&configPath), runCmd(&configPath))
	return cmd
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, the event subscriber and the optional daily worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withRuntime(ctx, *configPath, func(ctx context.Context, rt *runtime) error {
				return serve(ctx, rt)
			})
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(database.Up), string(database.Down)},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			dir := database.Up
			if len(args) == 1 {
				dir = database.Direction(args[0])
			}
			return database.Migrate(cfg.DatabaseURL, dir, log)
		},
	}
}

func runCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one scheduled automation run and print the report",
	}

	jobs := []struct {
		use, short string
		pick       func(*automation.Engine) func(context.Context) (domain.Report, error)
	}{
		{"periodic", "Run the periodic rules once", func(e *automation.Engine) func(context.Context) (domain.Report, error) { return e.RunPeriodic }},
		{"date-based", "Run the date-offset rules once", func(e *automation.Engine) func(context.Context) (domain.Report, error) { return e.RunDateBased }},
		{"backfill", "Create the invoice chase tasks missed in recent days", func(e *automation.Engine) func(context.Context) (domain.Report, error) {
			return e.BackfillInvoiceChase
		}},
	}

	for _, job := range jobs {
		cmd.AddCommand(&cobra.Command{
			Use:   job.use,
			Short: job.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRuntime(cmd.Context(), *configPath, func(ctx context.Context, rt *runtime) error {
					ctx, cancel := context.WithTimeout(ctx, rt.cfg.SchedulerTimeout)
					defer cancel()

					report, err := job.pick(rt.engine)(ctx)
					if err != nil {
						return err
					}
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(report)
				})
			},
		})
	}
	return cmd
}

// runtime bundles what every database-backed command needs.
type runtime struct {
	cfg    *config.Config
	log    *zap.Logger
	pool   dbPool
	store  store.Storer
	engine *automation.Engine
}

// dbPool is satisfied by *pgxpool.Pool and by pgxmock pools.
type dbPool interface {
	database.Querier
	Ping(ctx context.Context) error
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.NewLogger(logger.Options{Env: cfg.Env, Level: cfg.LogLevel, File: cfg.LogFile})
}

func withRuntime(ctx context.Context, configPath string, fn func(context.Context, *runtime) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("could not initialize logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	pool, err := database.ConnectDB(ctx, cfg.DatabaseURL, database.DefaultRetryConfig(), log)
	if err != nil {
		log.Error("could not connect to the database", zap.Error(err))
		return err
	}
	defer pool.Close()

	rt, err := newRuntime(ctx, cfg, log, pool)
	if err != nil {
		return err
	}
	return fn(ctx, rt)
}

// newRuntime runs the startup migrations when enabled and builds the engine.
func newRuntime(ctx context.Context, cfg *config.Config, log *zap.Logger, pool dbPool) (*runtime, error) {
	if cfg.RunMigrations {
		if err := database.RunMigrations(ctx, pool, log); err != nil {
			log.Error("database migrations failed", zap.Error(err))
			return nil, err
		}
	}

	dbStore := store.NewStore(pool)
	engine := automation.NewEngine(dbStore, log, automation.Options{
		Clock:            automation.SystemClock(cfg.Timezone),
		SchedulerTimeout: cfg.SchedulerTimeout,
		BackfillRuleName: cfg.BackfillRuleName,
		BackfillDays:     cfg.BackfillDays,
	})

	return &runtime{cfg: cfg, log: log, pool: pool, store: dbStore, engine: engine}, nil
}

func newHTTPServer(rt *runtime) *http.Server {
	apiServer := api.NewServer(rt.store, rt.engine, rt.pool, api.Options{
		DispatchTimeout:  rt.cfg.DispatchTimeout,
		SchedulerTimeout: rt.cfg.SchedulerTimeout,
	}, rt.log)

	// Scheduler-runs mogen langer duren dan een gewone request
	writeTimeout := rt.cfg.SchedulerTimeout + 10*time.Second
	if d := rt.cfg.DispatchTimeout + 10*time.Second; d > writeTimeout {
		writeTimeout = d
	}

	return &http.Server{
		Addr:         ":" + rt.cfg.APIPort,
		Handler:      apiServer.Router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  120 * time.Second,
	}
}

func newWorker(rt *runtime) (*worker.Worker, error) {
	return worker.NewWorker(rt.log, worker.Options{
		Schedule: rt.cfg.ScheduleCron,
		Location: rt.cfg.Timezone,
		Timeout:  rt.cfg.SchedulerTimeout,
	},
		worker.NewJob("periodic", rt.engine.RunPeriodic),
		worker.NewJob("date_based", rt.engine.RunDateBased),
	)
}

func serve(ctx context.Context, rt *runtime) error {
	log := rt.log.With(zap.String("component", "main"))

	if rt.cfg.WorkerEnabled {
		w, err := newWorker(rt)
		if err != nil {
			return err
		}
		w.Start()
		defer w.Stop()
	}

	if rt.cfg.NATSURL != "" {
		nc, err := events.Connect(rt.cfg.NATSURL, log)
		if err != nil {
			return err
		}
		defer nc.Close()

		sub := events.NewSubscriber(nc, rt.engine, events.Options{
			Subject:        rt.cfg.NATSSubject,
			Queue:          rt.cfg.NATSQueue,
			ResultsSubject: rt.cfg.NATSResultsSubject,
			Timeout:        rt.cfg.DispatchTimeout,
		}, rt.log)
		if err := sub.Start(); err != nil {
			return err
		}
		defer func() {
			if err := sub.Stop(); err != nil {
				log.Warn("could not drain event subscription", zap.Error(err))
			}
		}()
	}

	server := newHTTPServer(rt)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting API server", zap.String("port", rt.cfg.APIPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("could not start server", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
