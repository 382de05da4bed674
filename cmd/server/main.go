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

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MantraGGR/name---level-up-irl-app/internal/auth"
	"github.com/MantraGGR/name---level-up-irl-app/internal/config"
	"github.com/MantraGGR/name---level-up-irl-app/internal/db"
	api "github.com/MantraGGR/name---level-up-irl-app/internal/http"
	"github.com/MantraGGR/name---level-up-irl-app/internal/logging"
	"github.com/MantraGGR/name---level-up-irl-app/internal/repo"
	"github.com/MantraGGR/name---level-up-irl-app/internal/scheduler"
	"github.com/MantraGGR/name---level-up-irl-app/internal/service"
	"github.com/MantraGGR/name---level-up-irl-app/internal/store"
	"github.com/MantraGGR/name---level-up-irl-app/internal/store/memstore"
	"github.com/MantraGGR/name---level-up-irl-app/internal/textgen"
)

var (
	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "levelup",
	Short: "Level-Up IRL progression backend",
	Long: `Serves the Level-Up IRL API: pillar XP ledger, tasks, quests, goal
roadmaps and the chat advisor.

Run without a subcommand to start the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
		if logger, err = logging.New(cfg.LogLevel, cfg.LogFormat); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and the quest-expiry scheduler",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE:  runMigrate,
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Deactivate expired quests once and exit",
	RunE:  runSweep,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, sweepCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	provider, closeProvider, err := openProvider(ctx)
	if err != nil {
		return err
	}
	defer closeProvider()

	authManager := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	svc := newService(st, authManager, provider)

	sched := scheduler.New(logger)
	if err := sched.AddSweep(cfg.QuestSweepSchedule, svc); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	handler := &api.API{Service: svc, Auth: authManager, Origins: cfg.CORSOrigins, Log: logger}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("port", cfg.Port), zap.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if cfg.Store != config.StorePostgres {
		return fmt.Errorf("migrate needs STORE=%s", config.StorePostgres)
	}
	_, closeStore, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	closeStore()
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	st, closeStore, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore()
	svc := newService(st, auth.NewManager(cfg.JWTSecret, cfg.TokenTTL), nil)
	n, err := svc.SweepExpiredQuests(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deactivated %d expired quests\n", n)
	return nil
}

func newService(st store.Store, authManager *auth.Manager, provider textgen.Provider) *service.Service {
	return service.New(st, authManager, service.Options{
		Provider:       provider,
		QuestAITimeout: cfg.QuestAITimeout,
		GoalAITimeout:  cfg.GoalAITimeout,
		QuestTTL:       cfg.QuestTTL,
		Log:            logger,
	})
}

// openStore connects the configured store. Postgres is migrated on open.
func openStore(ctx context.Context) (store.Store, func(), error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("using in-memory store; data is lost on exit")
		return memstore.New(), func() {}, nil
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect db: %w", err)
	}
	applied, err := db.RunMigrations(ctx, pool, db.Source(cfg.MigrationsDir), logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	logger.Info("database ready", zap.Int("migrations_applied", len(applied)))
	return repo.New(pool), pool.Close, nil
}

// openProvider returns nil when no API key is configured; the service then
// runs on templates only. With REDIS_URL set, responses are cached.
func openProvider(ctx context.Context) (textgen.Provider, func(), error) {
	if cfg.GeminiAPIKey == "" {
		logger.Info("text generation disabled")
		return nil, func() {}, nil
	}
	gem, err := textgen.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, nil, err
	}
	if cfg.RedisURL == "" {
		return gem, func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable; provider cache will miss until it recovers", zap.Error(err))
	}
	cached := textgen.NewCached(gem, client, cfg.TextgenCacheTTL, gem.Model(), logger)
	return cached, func() { _ = client.Close() }, nil
}
