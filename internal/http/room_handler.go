package http

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/example/room-booking/internal/application"
)

type roomService interface {
	CreateRoom(ctx context.Context, params application.CreateRoomParams) (application.Room, error)
	UpdateRoom(ctx context.Context, params application.UpdateRoomParams) (application.Room, error)
	GetRoom(ctx context.Context, principal application.Principal, roomID string) (application.Room, error)
	DeleteRoom(ctx context.Context, principal application.Principal, roomID string) error
	ListRooms(ctx context.Context, principal application.Principal) ([]application.Room, error)
}

// RoomHandler serves the room catalog.
type RoomHandler struct {
	service   roomService
	responder responder
	logger    *slog.Logger
}

func NewRoomHandler(service roomService, logger *slog.Logger) *RoomHandler {
	base := defaultLogger(logger)
	return &RoomHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RoomHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RoomHandler", operation, attrs...)
}

func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}
	ctx := r.Context()
	logger := h.log(ctx, "List")

	principal, ok := PrincipalFromContext(ctx)
	if !ok || strings.TrimSpace(principal.UserID) == "" {
		logger.WarnContext(ctx, "missing authenticated principal", "error_kind", "unauthorized")
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	rooms, err := h.service.ListRooms(ctx, principal)
	if err != nil {
		h.responder.fail(ctx, w, logger, "room list failed", err)
		return
	}

	body := listRoomsResponse{Rooms: make([]roomDTO, len(rooms))}
	for i, room := range rooms {
		body.Rooms[i] = newRoomDTO(room)
	}
	logger.InfoContext(ctx, "rooms listed", "result_count", len(rooms))
	h.responder.writeJSON(ctx, w, http.StatusOK, body)
}

func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}
	roomID, ok := h.responder.pathID(w, r, RoomIDFromContext, errInvalidRoomID)
	if !ok {
		return
	}
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)

	room, err := h.service.GetRoom(ctx, principal, roomID)
	if err != nil {
		h.responder.fail(ctx, w, h.log(ctx, "Get"), "room lookup failed", err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, roomResponse{Room: newRoomDTO(room)})
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}
	ctx := r.Context()
	logger := h.log(ctx, "Create")

	var req roomRequest
	if !h.responder.decodeJSON(w, r, logger, &req) {
		return
	}
	principal, _ := PrincipalFromContext(ctx)

	room, err := h.service.CreateRoom(ctx, application.CreateRoomParams{
		Principal: principal,
		Input:     req.input(),
	})
	if err != nil {
		h.responder.fail(ctx, w, logger, "room creation failed", err)
		return
	}

	logger.InfoContext(ctx, "room created", "created_room_id", room.ID)
	h.responder.writeJSON(ctx, w, http.StatusCreated, roomResponse{Room: newRoomDTO(room)})
}

// Update replaces the room's editable fields. Omitting is_active keeps the
// current state.
func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}
	roomID, ok := h.responder.pathID(w, r, RoomIDFromContext, errInvalidRoomID)
	if !ok {
		return
	}
	ctx := r.Context()
	logger := h.log(ctx, "Update")

	var req roomRequest
	if !h.responder.decodeJSON(w, r, logger, &req) {
		return
	}
	principal, _ := PrincipalFromContext(ctx)

	room, err := h.service.UpdateRoom(ctx, application.UpdateRoomParams{
		Principal: principal,
		RoomID:    roomID,
		Input:     req.input(),
	})
	if err != nil {
		h.responder.fail(ctx, w, logger, "room update failed", err)
		return
	}

	logger.InfoContext(ctx, "room updated")
	h.responder.writeJSON(ctx, w, http.StatusOK, roomResponse{Room: newRoomDTO(room)})
}

func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		unavailable(w)
		return
	}
	roomID, ok := h.responder.pathID(w, r, RoomIDFromContext, errInvalidRoomID)
	if !ok {
		return
	}
	ctx := r.Context()
	principal, _ := PrincipalFromContext(ctx)
	logger := h.log(ctx, "Delete")

	if err := h.service.DeleteRoom(ctx, principal, roomID); err != nil {
		h.responder.fail(ctx, w, logger, "room delete failed", err)
		return
	}
	logger.InfoContext(ctx, "room deleted")
	w.WriteHeader(http.StatusNoContent)
}

type roomRequest struct {
	Name      string   `json:"name"`
	Location  string   `json:"location"`
	Capacity  int      `json:"capacity"`
	Amenities []string `json:"amenities"`
	IsActive  *bool    `json:"is_active"`
}

func (req roomRequest) input() application.RoomInput {
	return application.RoomInput{
		Name:      strings.TrimSpace(req.Name),
		Location:  strings.TrimSpace(req.Location),
		Capacity:  req.Capacity,
		Amenities: req.Amenities,
		IsActive:  req.IsActive,
	}
}

type roomDTO struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Location  string   `json:"location"`
	Capacity  int      `json:"capacity"`
	Amenities []string `json:"amenities"`
	IsActive  bool     `json:"is_active"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// newRoomDTO always renders amenities as a JSON array.
func newRoomDTO(room application.Room) roomDTO {
	amenities := slices.Clone(room.Amenities)
	if amenities == nil {
		amenities = []string{}
	}
	return roomDTO{
		ID:        room.ID,
		Name:      room.Name,
		Location:  room.Location,
		Capacity:  room.Capacity,
		Amenities: amenities,
		IsActive:  room.IsActive,
		CreatedAt: formatTimestamp(room.CreatedAt),
		UpdatedAt: formatTimestamp(room.UpdatedAt),
	}
}

type (
	roomResponse struct {
		Room roomDTO `json:"room"`
	}
	listRoomsResponse struct {
		Rooms []roomDTO `json:"rooms"`
	}
)
