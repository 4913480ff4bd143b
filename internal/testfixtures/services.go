package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/room-booking/internal/application"
)

// SessionSecret signs tokens issued by services built from a ServiceFactory.
var SessionSecret = []byte("testfixtures-session-secret-0123456789")

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLogger sets the logger handed to every service.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// NewRoomService builds a room service over rooms.
func (f *ServiceFactory) NewRoomService(rooms application.RoomRepository) *application.RoomService {
	return application.NewRoomServiceWithLogger(rooms, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), f.Logger)
}

// NewUserService builds a user service over users with argon2id hashing.
func (f *ServiceFactory) NewUserService(users application.UserRepository) *application.UserService {
	return application.NewUserServiceWithLogger(users, application.HashPassword, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), f.Logger)
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Credentials application.CredentialStore
	Sessions    application.SessionRepository
	// SessionTTL defaults to 24 hours.
	SessionTTL time.Duration
}

// NewAuthService builds an auth service signing with SessionSecret.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	ttl := deps.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return application.NewAuthServiceWithLogger(
		deps.Credentials,
		deps.Sessions,
		application.VerifyPassword,
		SessionSecret,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		ttl,
		f.Logger,
	)
}

// ReservationServiceDeps captures dependencies for constructing a reservation service.
type ReservationServiceDeps struct {
	Reservations application.ReservationRepository
	Rooms        application.RoomCatalog
	Users        application.UserDirectory
	Notifier     application.Notifier
	Cache        application.AvailabilityCache
	// SeriesWorkers defaults to application.DefaultSeriesWorkers.
	SeriesWorkers int
}

// NewReservationService builds a reservation service from deps.
func (f *ServiceFactory) NewReservationService(deps ReservationServiceDeps) *application.ReservationService {
	svc := application.NewReservationServiceWithLogger(
		deps.Reservations,
		deps.Rooms,
		deps.Users,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		f.Logger,
	)
	if deps.Notifier != nil {
		svc = svc.WithNotifier(deps.Notifier)
	}
	if deps.Cache != nil {
		svc = svc.WithAvailabilityCache(deps.Cache)
	}
	if deps.SeriesWorkers > 0 {
		svc = svc.WithSeriesWorkers(deps.SeriesWorkers)
	}
	return svc
}

// Services bundles every application service over one SQLite harness.
type Services struct {
	Rooms        *application.RoomService
	Users        *application.UserService
	Auth         *application.AuthService
	Reservations *application.ReservationService
	Availability *application.AvailabilityService
	Cache        *application.MemoryAvailabilityCache
}

// NewServices wires all services to h, sharing one availability cache so
// that booking writes invalidate availability reads.
func (f *ServiceFactory) NewServices(h *SQLiteHarness) Services {
	cache := application.NewMemoryAvailabilityCache(30*time.Second, 256, f.Clock.NowFunc())
	guarded := application.NewGuardedAvailabilityCache(cache)
	reservations := f.NewReservationService(ReservationServiceDeps{
		Reservations: h.Reservations,
		Rooms:        h.Rooms,
		Users:        h.Users,
		Cache:        guarded,
	})
	return Services{
		Rooms:        f.NewRoomService(h.Rooms),
		Users:        f.NewUserService(h.Users),
		Auth:         f.NewAuthService(AuthServiceDeps{Credentials: h.Users, Sessions: h.Sessions}),
		Reservations: reservations,
		Availability: application.NewAvailabilityServiceWithLogger(h.Rooms, h.Reservations, guarded, f.Logger),
		Cache:        cache,
	}
}
