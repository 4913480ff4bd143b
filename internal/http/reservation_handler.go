package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/example/room-booking/internal/application"
)

type reservationService interface {
	CreateReservation(ctx context.Context, params application.CreateReservationParams) (application.Reservation, error)
	CreateSeries(ctx context.Context, params application.CreateSeriesParams) (application.SeriesResult, error)
	GetReservation(ctx context.Context, principal application.Principal, id string) (application.Reservation, error)
	ListReservations(ctx context.Context, params application.ListReservationsParams) ([]application.Reservation, error)
	AdminListReservations(ctx context.Context, params application.AdminListParams) ([]application.ReservationDetail, error)
	UpdateReservation(ctx context.Context, params application.UpdateReservationParams) (application.Reservation, error)
	CancelReservation(ctx context.Context, principal application.Principal, id string) (application.Reservation, error)
	CancelSeries(ctx context.Context, principal application.Principal, seriesID string) (int, error)
	SetCalendarEventID(ctx context.Context, principal application.Principal, id, eventID string) error
}

// ReservationHandler serves single and recurring reservation endpoints.
type ReservationHandler struct {
	service   reservationService
	responder responder
	logger    *slog.Logger
}

func NewReservationHandler(service reservationService, logger *slog.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ReservationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ReservationHandler", operation, attrs...)
}

func (h *ReservationHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		unavailable(w)
		return false
	}
	return true
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req reservationRequest
	if !h.responder.decodeJSON(w, r, h.log(r.Context(), "Create"), &req) {
		return
	}

	logger := h.log(r.Context(), "Create", "room_id", req.RoomID, "date", req.Date)

	reservation, err := h.service.CreateReservation(r.Context(), application.CreateReservationParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.fail(r.Context(), w, logger, "reservation creation failed", err)
		return
	}

	logger.With("reservation_id", reservation.ID).InfoContext(r.Context(), "reservation created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, reservationResponse{Reservation: toReservationDTO(reservation)})
}

// CreateSeries books every date of a recurring rule. It answers 201 when at
// least one date was booked and 409 when every date conflicted.
func (h *ReservationHandler) CreateSeries(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req seriesRequest
	if !h.responder.decodeJSON(w, r, h.log(r.Context(), "CreateSeries"), &req) {
		return
	}

	logger := h.log(r.Context(), "CreateSeries", "room_id", req.RoomID)

	result, err := h.service.CreateSeries(r.Context(), application.CreateSeriesParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.fail(r.Context(), w, logger, "series creation failed", err)
		return
	}

	resp := toSeriesResponse(result)
	status := http.StatusCreated
	switch {
	case result.CreatedCount > 0:
	case result.AllConflicted():
		status = http.StatusConflict
		resp.ErrorCode = "RESERVATION_CONFLICT"
	default:
		status = http.StatusUnprocessableEntity
		resp.ErrorCode = "SERIES_NOTHING_BOOKED"
	}

	logger.With("series_id", result.SeriesID, "created_count", result.CreatedCount, "status", status).InfoContext(r.Context(), "series processed")
	h.responder.writeJSON(r.Context(), w, status, resp)
}

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	id, ok := h.responder.pathID(w, r, ReservationIDFromContext, errInvalidReservationID)
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	reservation, err := h.service.GetReservation(r.Context(), principal, id)
	if err != nil {
		h.responder.fail(r.Context(), w, h.log(r.Context(), "Get"), "reservation lookup failed", err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

// List serves GET /reservations and, when a user id is in the path,
// GET /users/{id}/reservations.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()
	userID, _ := UserIDFromContext(r.Context())
	if userID == "" {
		userID = query.Get("user_id")
	}

	params := application.ListReservationsParams{
		Principal: principal,
		RoomID:    query.Get("room_id"),
		UserID:    userID,
		Date:      query.Get("date"),
	}
	logger := h.log(r.Context(), "List", "filter_user_id", params.UserID)

	reservations, err := h.service.ListReservations(r.Context(), params)
	if err != nil {
		h.responder.fail(r.Context(), w, logger, "reservation list failed", err)
		return
	}

	out := make([]reservationDTO, 0, len(reservations))
	for _, reservation := range reservations {
		out = append(out, toReservationDTO(reservation))
	}
	logger.With("result_count", len(out)).DebugContext(r.Context(), "reservations listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listReservationsResponse{Reservations: out})
}

func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	id, ok := h.responder.pathID(w, r, ReservationIDFromContext, errInvalidReservationID)
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req reservationUpdateRequest
	if !h.responder.decodeJSON(w, r, h.log(r.Context(), "Update"), &req) {
		return
	}

	logger := h.log(r.Context(), "Update")

	reservation, err := h.service.UpdateReservation(r.Context(), application.UpdateReservationParams{
		Principal:     principal,
		ReservationID: id,
		Input:         req.changes(),
	})
	if err != nil {
		h.responder.fail(r.Context(), w, logger, "reservation update failed", err)
		return
	}

	logger.InfoContext(r.Context(), "reservation updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

// Cancel serves POST /reservations/{id}/cancel, DELETE /reservations/{id}
// and the administrative PUT /admin/reservations/{id}/cancel.
func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	id, ok := h.responder.pathID(w, r, ReservationIDFromContext, errInvalidReservationID)
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Cancel")

	reservation, err := h.service.CancelReservation(r.Context(), principal, id)
	if err != nil {
		h.responder.fail(r.Context(), w, logger, "reservation cancel failed", err)
		return
	}

	logger.InfoContext(r.Context(), "reservation cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

func (h *ReservationHandler) CancelSeries(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	seriesID, ok := h.responder.pathID(w, r, SeriesIDFromContext, errInvalidSeriesID)
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "CancelSeries")

	count, err := h.service.CancelSeries(r.Context(), principal, seriesID)
	if err != nil {
		h.responder.fail(r.Context(), w, logger, "series cancel failed", err)
		return
	}

	logger.With("cancelled_count", count).InfoContext(r.Context(), "series cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, cancelSeriesResponse{
		Message: fmt.Sprintf("%d reservations cancelled", count),
		Count:   count,
	})
}

func (h *ReservationHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()
	params := application.AdminListParams{
		Principal: principal,
		RoomID:    query.Get("room_id"),
		Date:      query.Get("date"),
		SortBy:    query.Get("sort_by"),
		SortOrder: query.Get("sort_order"),
	}
	logger := h.log(r.Context(), "AdminList")

	details, err := h.service.AdminListReservations(r.Context(), params)
	if err != nil {
		h.responder.fail(r.Context(), w, logger, "admin reservation list failed", err)
		return
	}

	out := make([]reservationDTO, 0, len(details))
	for _, detail := range details {
		dto := toReservationDTO(detail.Reservation)
		dto.UserName = detail.UserName
		dto.UserEmail = detail.UserEmail
		out = append(out, dto)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listReservationsResponse{Reservations: out})
}

// SetCalendarEvent records the calendar event created by the calendar worker.
func (h *ReservationHandler) SetCalendarEvent(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	id, ok := h.responder.pathID(w, r, ReservationIDFromContext, errInvalidReservationID)
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req calendarEventRequest
	if !h.responder.decodeJSON(w, r, h.log(r.Context(), "SetCalendarEvent"), &req) {
		return
	}

	if err := h.service.SetCalendarEventID(r.Context(), principal, id, req.CalendarEventID); err != nil {
		h.responder.fail(r.Context(), w, h.log(r.Context(), "SetCalendarEvent"), "calendar event update failed", err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type reservationRequest struct {
	RoomID         string `json:"room_id"`
	UserID         string `json:"user_id"`
	Date           string `json:"date"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	Title          string `json:"title"`
	Participants   string `json:"participants"`
	Description    string `json:"description"`
	TimezoneOffset *int   `json:"timezone_offset"`
}

// reservationUpdateRequest leaves absent fields unchanged.
type reservationUpdateRequest struct {
	RoomID         string  `json:"room_id"`
	UserID         string  `json:"user_id"`
	Date           string  `json:"date"`
	StartTime      string  `json:"start_time"`
	EndTime        string  `json:"end_time"`
	Title          *string `json:"title"`
	Participants   *string `json:"participants"`
	Description    *string `json:"description"`
	TimezoneOffset *int    `json:"timezone_offset"`
}

func (r reservationUpdateRequest) changes() application.ReservationChanges {
	return application.ReservationChanges{
		RoomID:         r.RoomID,
		UserID:         r.UserID,
		Date:           r.Date,
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
		Title:          r.Title,
		Participants:   r.Participants,
		Description:    r.Description,
		TimezoneOffset: r.TimezoneOffset,
	}
}

func (r reservationRequest) toInput() application.ReservationInput {
	return application.ReservationInput{
		RoomID:         r.RoomID,
		UserID:         r.UserID,
		Date:           r.Date,
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
		Title:          r.Title,
		Participants:   r.Participants,
		Description:    r.Description,
		TimezoneOffset: r.TimezoneOffset,
	}
}

type seriesRequest struct {
	RoomID         string `json:"room_id"`
	UserID         string `json:"user_id"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	IsAllDay       bool   `json:"is_all_day"`
	RepeatEvery    int    `json:"repeat_every"`
	RepeatPeriod   string `json:"repeat_period"`
	WeekDays       []int  `json:"week_days"`
	Title          string `json:"title"`
	Participants   string `json:"participants"`
	Description    string `json:"description"`
	TimezoneOffset *int   `json:"timezone_offset"`
}

func (r seriesRequest) toInput() application.SeriesInput {
	return application.SeriesInput{
		RoomID:         r.RoomID,
		UserID:         r.UserID,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
		IsAllDay:       r.IsAllDay,
		RepeatEvery:    r.RepeatEvery,
		RepeatPeriod:   r.RepeatPeriod,
		WeekDays:       r.WeekDays,
		Title:          r.Title,
		Participants:   r.Participants,
		Description:    r.Description,
		TimezoneOffset: r.TimezoneOffset,
	}
}

type calendarEventRequest struct {
	CalendarEventID string `json:"calendar_event_id"`
}

type reservationResponse struct {
	Reservation reservationDTO `json:"reservation"`
}

type listReservationsResponse struct {
	Reservations []reservationDTO `json:"reservations"`
}

type recurrenceDTO struct {
	RepeatEvery  int    `json:"repeat_every"`
	RepeatPeriod string `json:"repeat_period"`
	WeekDays     []int  `json:"week_days,omitempty"`
}

type reservationDTO struct {
	ID                string         `json:"id"`
	RoomID            string         `json:"room_id"`
	RoomName          string         `json:"room_name,omitempty"`
	RoomLocation      string         `json:"room_location,omitempty"`
	UserID            string         `json:"user_id"`
	UserName          string         `json:"user_name,omitempty"`
	UserEmail         string         `json:"user_email,omitempty"`
	Date              string         `json:"date"`
	StartTime         string         `json:"start_time"`
	EndTime           string         `json:"end_time"`
	Title             string         `json:"title"`
	Description       string         `json:"description,omitempty"`
	ParticipantEmails []string       `json:"participant_emails"`
	Status            string         `json:"status"`
	SeriesID          *string        `json:"series_id,omitempty"`
	Recurrence        *recurrenceDTO `json:"recurrence,omitempty"`
	CalendarEventID   *string        `json:"calendar_event_id,omitempty"`
	CreatedAt         string         `json:"created_at"`
	UpdatedAt         string         `json:"updated_at"`
	CancelledAt       *string        `json:"cancelled_at,omitempty"`
	CancelledBy       *string        `json:"cancelled_by,omitempty"`
}

func toReservationDTO(reservation application.Reservation) reservationDTO {
	participants := reservation.ParticipantEmails
	if participants == nil {
		participants = []string{}
	}
	dto := reservationDTO{
		ID:                reservation.ID,
		RoomID:            reservation.RoomID,
		RoomName:          reservation.RoomName,
		RoomLocation:      reservation.RoomLocation,
		UserID:            reservation.UserID,
		Date:              reservation.Date,
		StartTime:         reservation.StartTime,
		EndTime:           reservation.EndTime,
		Title:             reservation.Title,
		Description:       reservation.Description,
		ParticipantEmails: participants,
		Status:            string(reservation.Status),
		SeriesID:          reservation.SeriesID,
		CalendarEventID:   reservation.CalendarEventID,
		CreatedAt:         formatTimestamp(reservation.CreatedAt),
		UpdatedAt:         formatTimestamp(reservation.UpdatedAt),
		CancelledBy:       reservation.CancelledBy,
	}
	if reservation.Recurrence != nil {
		dto.Recurrence = &recurrenceDTO{
			RepeatEvery:  reservation.Recurrence.RepeatEvery,
			RepeatPeriod: reservation.Recurrence.RepeatPeriod,
			WeekDays:     reservation.Recurrence.WeekDays,
		}
	}
	if reservation.CancelledAt != nil {
		formatted := formatTimestamp(*reservation.CancelledAt)
		dto.CancelledAt = &formatted
	}
	return dto
}

type seriesOutcomeDTO struct {
	Date          string `json:"date"`
	Outcome       string `json:"outcome"`
	ReservationID string `json:"reservation_id,omitempty"`
	Message       string `json:"message,omitempty"`
}

type seriesResponse struct {
	ErrorCode string             `json:"error_code,omitempty"`
	Message   string             `json:"message"`
	Count     int                `json:"count"`
	Dates     []string           `json:"dates"`
	Outcomes  []seriesOutcomeDTO `json:"outcomes"`
	SeriesID  string             `json:"series_id"`
}

func toSeriesResponse(result application.SeriesResult) seriesResponse {
	dates := result.Dates
	if dates == nil {
		dates = []string{}
	}
	outcomes := make([]seriesOutcomeDTO, 0, len(result.Outcomes))
	for _, outcome := range result.Outcomes {
		outcomes = append(outcomes, seriesOutcomeDTO{
			Date:          outcome.Date,
			Outcome:       string(outcome.Outcome),
			ReservationID: outcome.ReservationID,
			Message:       outcome.Message,
		})
	}
	return seriesResponse{
		Message:  fmt.Sprintf("%d of %d reservations created", result.CreatedCount, len(result.Outcomes)),
		Count:    result.CreatedCount,
		Dates:    dates,
		Outcomes: outcomes,
		SeriesID: result.SeriesID,
	}
}

type cancelSeriesResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}
