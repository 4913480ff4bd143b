package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/room-booking/internal/adapter"
	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/cache"
	"github.com/example/room-booking/internal/config"
	httptransport "github.com/example/room-booking/internal/http"
	"github.com/example/room-booking/internal/logging"
	"github.com/example/room-booking/internal/notify"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/sqlite"
	"github.com/example/room-booking/internal/persistence/sqlite/migration"
)

const maintenanceInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		slog.Error("failed to configure logging", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("booking service stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	go app.maintain(ctx, maintenanceInterval)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("booking API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// app holds the wired service graph and the resources it must release.
type app struct {
	handler  http.Handler
	pool     *sqlite.ConnectionPool
	sessions *adapter.Sessions
	limiter  *httptransport.RateLimiter
	closers  []io.Closer
	logger   *slog.Logger
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	pool, err := sqlite.NewConnectionPool(migration.DefaultSQLiteConfig(cfg.SQLitePath))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a := &app{pool: pool, logger: logger}
	if err := pool.Migrate(ctx, logger); err != nil {
		a.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	idGenerator := uuid.NewString
	now := time.Now

	users := adapter.NewUsers(sqlite.NewUserRepository(pool))
	rooms := adapter.NewRooms(sqlite.NewRoomRepository(pool))
	reservations := adapter.NewReservations(sqlite.NewReservationRepository(pool))
	a.sessions = adapter.NewSessions(sqlite.NewSessionRepository(pool))

	availabilityCache := application.NewGuardedAvailabilityCache(a.availabilityCache(ctx, cfg, now))
	notifier := a.notifier(cfg)

	roomService := application.NewRoomServiceWithLogger(rooms, idGenerator, now, logger)
	userService := application.NewUserServiceWithLogger(users, application.HashPassword, idGenerator, now, logger)
	authService := application.NewAuthServiceWithLogger(users, a.sessions, application.VerifyPassword, []byte(cfg.SessionSecret), idGenerator, now, cfg.SessionTTL, logger)
	reservationService := application.NewReservationServiceWithLogger(reservations, rooms, users, idGenerator, now, logger).
		WithNotifier(notifier).
		WithAvailabilityCache(availabilityCache).
		WithSeriesWorkers(cfg.SeriesWorkers)
	availabilityService := application.NewAvailabilityServiceWithLogger(rooms, reservations, availabilityCache, logger)

	if err := bootstrapAdmin(ctx, cfg, users, userService, logger); err != nil {
		a.Close()
		return nil, err
	}

	a.limiter = httptransport.NewRateLimiter(cfg.LoginRate, cfg.LoginBurst)
	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Auth:         httptransport.NewAuthHandler(authService, logger).WithUserLookup(userService),
		Users:        httptransport.NewUserHandler(userService, logger),
		Rooms:        httptransport.NewRoomHandler(roomService, logger),
		Reservations: httptransport.NewReservationHandler(reservationService, logger),
		Availability: httptransport.NewAvailabilityHandler(availabilityService, logger),
		Health:       pool,
		Session:      httptransport.RequireSession(authService, logger),
		LoginLimit:   httptransport.RateLimit(a.limiter, logger),
		Middleware:   []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})
	return a, nil
}

// availabilityCache prefers Redis so that replicas share invalidations and
// falls back to an in-process cache when Redis is not configured or down.
func (a *app) availabilityCache(ctx context.Context, cfg config.Config, now func() time.Time) application.AvailabilityCache {
	if client := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); client != nil {
		a.closers = append(a.closers, client)
		a.logger.Info("availability cache using redis", "addr", cfg.RedisAddr)
		return cache.NewRedisAvailability(client, cache.DefaultPrefix, cfg.CacheTTL, a.logger)
	}
	if cfg.RedisAddr != "" {
		a.logger.Warn("redis unreachable, using in-memory availability cache", "addr", cfg.RedisAddr)
	}
	return application.NewMemoryAvailabilityCache(cfg.CacheTTL, 0, now)
}

func (a *app) notifier(cfg config.Config) application.Notifier {
	if cfg.AMQPURL == "" {
		return notify.NewLogNotifier(a.logger)
	}
	publisher := notify.NewPublisher(cfg.AMQPURL, cfg.AMQPQueue, notify.WithLogger(a.logger))
	a.closers = append(a.closers, publisher)
	return publisher
}

// maintain prunes idle rate limiter entries and expired sessions until ctx ends.
func (a *app) maintain(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.sweep(ctx, time.Now())
		}
	}
}

func (a *app) sweep(ctx context.Context, now time.Time) {
	pruned := a.limiter.Prune()
	if err := a.sessions.DeleteExpiredSessions(ctx, now); err != nil {
		a.logger.WarnContext(ctx, "failed to delete expired sessions", "error", err)
		return
	}
	a.logger.DebugContext(ctx, "maintenance sweep completed", "pruned_clients", pruned)
}

// Close releases the broker, cache and database handles in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Error("failed to close resource", "error", err)
		}
	}
	a.closers = nil
	if a.pool != nil {
		if err := a.pool.Close(); err != nil {
			a.logger.Error("failed to close storage", "error", err)
		}
		a.pool = nil
	}
}

// bootstrapAdmin creates the configured administrator when no account uses
// its email yet. It is a no-op without BOOKING_BOOTSTRAP_ADMIN_EMAIL.
func bootstrapAdmin(ctx context.Context, cfg config.Config, users *adapter.Users, service *application.UserService, logger *slog.Logger) error {
	if cfg.BootstrapAdminEmail == "" {
		return nil
	}

	_, err := users.GetUserCredentialsByEmail(ctx, cfg.BootstrapAdminEmail)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, persistence.ErrNotFound):
		return fmt.Errorf("look up bootstrap admin: %w", err)
	}

	admin, err := service.CreateUser(ctx, application.CreateUserParams{
		Principal: application.Principal{UserID: "bootstrap", IsAdmin: true},
		Input: application.UserInput{
			Email:       cfg.BootstrapAdminEmail,
			DisplayName: "Administrator",
			IsAdmin:     true,
			Password:    cfg.BootstrapAdminPassword,
		},
	})
	if err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}
	logger.Info("bootstrap admin created", "user_id", admin.ID, "email", admin.Email)
	return nil
}
