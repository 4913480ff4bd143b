package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/room-booking/internal/application"
)

type availabilityService interface {
	CheckAvailability(ctx context.Context, principal application.Principal, params application.AvailabilityParams) ([]application.RoomAvailability, error)
}

// AvailabilityHandler answers slot availability queries.
type AvailabilityHandler struct {
	service   availabilityService
	responder responder
	logger    *slog.Logger
}

func NewAvailabilityHandler(service availabilityService, logger *slog.Logger) *AvailabilityHandler {
	base := defaultLogger(logger)
	return &AvailabilityHandler{service: service, responder: newResponder(base), logger: base}
}

// Check serves GET /rooms/availability?date&start_time&end_time[&room_id].
func (h *AvailabilityHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()
	params := application.AvailabilityParams{
		Date:      query.Get("date"),
		StartTime: query.Get("start_time"),
		EndTime:   query.Get("end_time"),
		RoomID:    query.Get("room_id"),
	}

	results, err := h.service.CheckAvailability(r.Context(), principal, params)
	if err != nil {
		logger := handlerLogger(r.Context(), h.logger, "AvailabilityHandler", "Check", "date", params.Date)
		h.responder.fail(r.Context(), w, logger, "availability check failed", err)
		return
	}

	rooms := make([]roomAvailabilityDTO, 0, len(results))
	for _, result := range results {
		rooms = append(rooms, roomAvailabilityDTO{
			RoomID:            result.RoomID,
			RoomName:          result.RoomName,
			IsAvailable:       result.IsAvailable,
			NextAvailableTime: result.NextAvailableTime,
			ReservedBy:        result.ReservedBy,
			ReservedByName:    result.ReservedByName,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{
		Date:      params.Date,
		StartTime: params.StartTime,
		EndTime:   params.EndTime,
		Rooms:     rooms,
	})
}

type roomAvailabilityDTO struct {
	RoomID            string `json:"room_id"`
	RoomName          string `json:"room_name,omitempty"`
	IsAvailable       bool   `json:"is_available"`
	NextAvailableTime string `json:"next_available_time,omitempty"`
	ReservedBy        string `json:"reserved_by,omitempty"`
	ReservedByName    string `json:"reserved_by_name,omitempty"`
}

type availabilityResponse struct {
	Date      string                `json:"date"`
	StartTime string                `json:"start_time"`
	EndTime   string                `json:"end_time"`
	Rooms     []roomAvailabilityDTO `json:"rooms"`
}
