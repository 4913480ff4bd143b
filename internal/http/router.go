package http

import (
	"context"
	"net/http"
)

// RouterConfig lists the handlers and middleware mounted by NewRouter. Nil
// handlers leave their routes unregistered.
type RouterConfig struct {
	Auth         *AuthHandler
	Users        *UserHandler
	Rooms        *RoomHandler
	Reservations *ReservationHandler
	Availability *AvailabilityHandler
	Health       Pinger
	// Session guards every route except login and the health check.
	Session func(http.Handler) http.Handler
	// LoginLimit throttles POST /sessions.
	LoginLimit func(http.Handler) http.Handler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	protect := func(h http.HandlerFunc) http.Handler {
		if cfg.Session == nil {
			return h
		}
		return cfg.Session(h)
	}
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, protect(h))
	}

	mux.HandleFunc("GET /healthz", healthHandler(cfg.Health))

	if cfg.Auth != nil {
		var login http.Handler = http.HandlerFunc(cfg.Auth.CreateSession)
		if cfg.LoginLimit != nil {
			login = cfg.LoginLimit(login)
		}
		mux.Handle("POST /sessions", login)
		handle("GET /sessions/current", cfg.Auth.GetCurrentSession)
		handle("DELETE /sessions/current", cfg.Auth.DeleteCurrentSession)
		handle("DELETE /sessions/{token}", func(w http.ResponseWriter, r *http.Request) {
			cfg.Auth.DeleteSession(w, r, r.PathValue("token"))
		})
	}

	if cfg.Availability != nil {
		handle("GET /rooms/availability", cfg.Availability.Check)
	}

	if cfg.Rooms != nil {
		handle("GET /rooms", cfg.Rooms.List)
		handle("POST /rooms", cfg.Rooms.Create)
		handle("GET /rooms/{id}", withPathID(ContextWithRoomID, cfg.Rooms.Get))
		handle("PUT /rooms/{id}", withPathID(ContextWithRoomID, cfg.Rooms.Update))
		handle("DELETE /rooms/{id}", withPathID(ContextWithRoomID, cfg.Rooms.Delete))
	}

	if cfg.Reservations != nil {
		res := cfg.Reservations
		handle("GET /reservations", res.List)
		handle("POST /reservations", res.Create)
		handle("POST /reservations/series", res.CreateSeries)
		handle("DELETE /reservations/series/{id}", withPathID(ContextWithSeriesID, res.CancelSeries))
		handle("GET /reservations/{id}", withPathID(ContextWithReservationID, res.Get))
		handle("PUT /reservations/{id}", withPathID(ContextWithReservationID, res.Update))
		handle("DELETE /reservations/{id}", withPathID(ContextWithReservationID, res.Cancel))
		handle("POST /reservations/{id}/cancel", withPathID(ContextWithReservationID, res.Cancel))
		handle("GET /users/{id}/reservations", withPathID(ContextWithUserID, res.List))

		handle("GET /admin/reservations", res.AdminList)
		handle("PUT /admin/reservations/{id}/cancel", withPathID(ContextWithReservationID, res.Cancel))
		handle("PUT /admin/reservations/{id}/calendar-event", withPathID(ContextWithReservationID, res.SetCalendarEvent))
	}

	if cfg.Users != nil {
		handle("GET /users", cfg.Users.List)
		handle("POST /users", cfg.Users.Create)
		handle("GET /users/{id}", withPathID(ContextWithUserID, cfg.Users.Get))
		handle("PUT /users/{id}", withPathID(ContextWithUserID, cfg.Users.Update))
		handle("DELETE /users/{id}", withPathID(ContextWithUserID, cfg.Users.Delete))
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

// withPathID copies the {id} wildcard into the request context under the
// key the handler reads.
func withPathID(inject func(context.Context, string) context.Context, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := inject(r.Context(), r.PathValue("id"))
		next(w, r.WithContext(ctx))
	}
}
