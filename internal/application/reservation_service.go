package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/recurrence"
	"github.com/example/room-booking/internal/scheduler"
)

// ReservationRepository captures the persistence interactions needed by the
// reservation service. CreateReservation and UpdateReservation must reject an
// overlapping confirmed reservation atomically with the write.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	UpdateReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]ReservationDetail, error)
	CancelReservation(ctx context.Context, id, cancelledBy string, at time.Time) (Reservation, error)
	CancelSeries(ctx context.Context, seriesID, cancelledBy string, at time.Time) (int, error)
	SetCalendarEventID(ctx context.Context, id, eventID string) error
}

// ReservationFilter narrows queries issued to the reservation repository.
type ReservationFilter struct {
	RoomID     string
	UserID     string
	Date       string
	SeriesID   string
	ActiveOnly bool
	SortBy     string
	Descending bool
}

// RoomCatalog exposes room lookup operations.
type RoomCatalog interface {
	GetRoom(ctx context.Context, id string) (Room, error)
}

// UserDirectory exposes user lookup operations.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (User, error)
}

// DefaultSeriesWorkers bounds how many series dates are booked concurrently.
const DefaultSeriesWorkers = 4

var reservationSortKeys = map[string]struct{}{
	"date":       {},
	"start_time": {},
	"room_name":  {},
	"user_name":  {},
	"status":     {},
}

// ReservationService orchestrates validation, authorization, and persistence
// for single and recurring reservations.
type ReservationService struct {
	reservations  ReservationRepository
	rooms         RoomCatalog
	users         UserDirectory
	notifier      Notifier
	cache         AvailabilityCache
	engine        *recurrence.Engine
	seriesWorkers int
	idGenerator   func() string
	now           func() time.Time
	logger        *slog.Logger
}

// NewReservationService wires dependencies for reservation operations.
func NewReservationService(reservations ReservationRepository, rooms RoomCatalog, users UserDirectory, idGenerator func() string, now func() time.Time) *ReservationService {
	return NewReservationServiceWithLogger(reservations, rooms, users, idGenerator, now, nil)
}

// NewReservationServiceWithLogger wires dependencies with a specified logger.
func NewReservationServiceWithLogger(reservations ReservationRepository, rooms RoomCatalog, users UserDirectory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ReservationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ReservationService{
		reservations:  reservations,
		rooms:         rooms,
		users:         users,
		engine:        recurrence.NewEngine(recurrence.DefaultMaxOccurrences),
		seriesWorkers: DefaultSeriesWorkers,
		idGenerator:   idGenerator,
		now:           now,
		logger:        defaultLogger(logger),
	}
}

// WithNotifier sets the collaborator that receives reservation events.
func (s *ReservationService) WithNotifier(notifier Notifier) *ReservationService {
	s.notifier = notifier
	return s
}

// WithAvailabilityCache sets the cache invalidated after every change.
func (s *ReservationService) WithAvailabilityCache(cache AvailabilityCache) *ReservationService {
	s.cache = cache
	return s
}

// WithSeriesWorkers bounds concurrent bookings during series creation.
func (s *ReservationService) WithSeriesWorkers(workers int) *ReservationService {
	if workers > 0 {
		s.seriesWorkers = workers
	}
	return s
}

// WithRecurrenceEngine replaces the engine used to expand series.
func (s *ReservationService) WithRecurrenceEngine(engine *recurrence.Engine) *ReservationService {
	if engine != nil {
		s.engine = engine
	}
	return s
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

// CreateReservation validates the slot and books it atomically.
func (s *ReservationService) CreateReservation(ctx context.Context, params CreateReservationParams) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	input := normalizeReservationInput(params.Input)
	principal := params.Principal
	if input.UserID == "" {
		input.UserID = principal.UserID
	}

	logger := s.loggerWith(ctx, "CreateReservation",
		"principal_id", principal.UserID,
		"room_id", input.RoomID,
		"date", input.Date,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("reservation_id", reservation.ID).InfoContext(ctx, "reservation created")
	}()

	if input.UserID != principal.UserID && !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	if vErr := validateReservationInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	var startTime, endTime string
	startTime, endTime, err = s.validateSlot(input.Date, input.StartTime, input.EndTime, input.TimezoneOffset)
	if err != nil {
		return
	}

	var room Room
	room, err = s.bookableRoom(ctx, input.RoomID)
	if err != nil {
		return
	}

	var owner User
	owner, err = s.owner(ctx, input.UserID)
	if err != nil {
		return
	}

	now := s.now()
	candidate := Reservation{
		ID:                s.idGenerator(),
		RoomID:            room.ID,
		UserID:            input.UserID,
		RoomName:          room.Name,
		RoomLocation:      room.Location,
		Date:              input.Date,
		StartTime:         startTime,
		EndTime:           endTime,
		Title:             input.Title,
		Description:       input.Description,
		ParticipantEmails: ParseParticipantEmails(input.Participants),
		Status:            StatusConfirmed,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	reservation, err = s.reservations.CreateReservation(ctx, candidate)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	s.invalidate(ctx, reservation.Date)
	s.publish(ctx, logger, reservationEvent(EventReservationCreated, reservation, owner))
	return
}

// CreateSeries expands a recurrence rule and books each date independently.
// Dates that conflict or fail the time rules are reported in the outcomes and
// do not prevent the other dates from being booked. Created reservations share
// one series id.
func (s *ReservationService) CreateSeries(ctx context.Context, params CreateSeriesParams) (result SeriesResult, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	input := normalizeSeriesInput(params.Input)
	principal := params.Principal
	if input.UserID == "" {
		input.UserID = principal.UserID
	}

	logger := s.loggerWith(ctx, "CreateSeries",
		"principal_id", principal.UserID,
		"room_id", input.RoomID,
		"start_date", input.StartDate,
		"end_date", input.EndDate,
		"repeat_period", input.RepeatPeriod,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create reservation series", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"series_id", result.SeriesID,
			"created_count", result.CreatedCount,
			"requested_count", len(result.Outcomes),
		).InfoContext(ctx, "reservation series created")
	}()

	if input.UserID != principal.UserID && !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	var rule recurrence.Rule
	rule, err = buildSeriesRule(input)
	if err != nil {
		return
	}

	var occurrences []recurrence.Occurrence
	occurrences, err = s.engine.Expand(rule)
	if err != nil {
		err = mapRecurrenceError(err)
		return
	}
	if len(occurrences) == 0 {
		err = newFieldError("end_date", "series has no dates in the selected range")
		return
	}

	var room Room
	room, err = s.bookableRoom(ctx, input.RoomID)
	if err != nil {
		return
	}

	var owner User
	owner, err = s.owner(ctx, input.UserID)
	if err != nil {
		return
	}

	seriesID := s.idGenerator()
	template := Reservation{
		RoomID:            room.ID,
		UserID:            input.UserID,
		RoomName:          room.Name,
		RoomLocation:      room.Location,
		Title:             input.Title,
		Description:       input.Description,
		ParticipantEmails: ParseParticipantEmails(input.Participants),
		Status:            StatusConfirmed,
		SeriesID:          &seriesID,
		Recurrence: &RecurrenceRule{
			RepeatEvery:  input.RepeatEvery,
			RepeatPeriod: string(rule.RepeatPeriod),
			WeekDays:     recurrence.WeekdaysToInts(rule.WeekDays),
		},
	}

	ids := make([]string, len(occurrences))
	for i := range occurrences {
		ids[i] = s.idGenerator()
	}

	clientNow := scheduler.ClientNow(s.now(), input.TimezoneOffset)
	outcomes := make([]SeriesOutcome, len(occurrences))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.seriesWorkers)
	for i, occurrence := range occurrences {
		group.Go(func() error {
			candidate := template
			candidate.ID = ids[i]
			candidate.Date = occurrence.Date
			candidate.StartTime = occurrence.StartTime
			candidate.EndTime = occurrence.EndTime

			outcome, err := s.bookOccurrence(groupCtx, candidate, clientNow)
			outcomes[i] = outcome
			return err
		})
	}
	err = group.Wait()

	result = SeriesResult{SeriesID: seriesID, Outcomes: outcomes}
	for _, outcome := range outcomes {
		if outcome.Outcome != OutcomeCreated {
			continue
		}
		result.CreatedCount++
		result.Dates = append(result.Dates, outcome.Date)
		s.invalidate(ctx, outcome.Date)
	}
	if err != nil {
		return
	}

	if result.CreatedCount > 0 {
		event := reservationEvent(EventSeriesCreated, template, owner)
		event.Dates = result.Dates
		event.Date = result.Dates[0]
		event.StartTime, event.EndTime = rule.TimeRange()
		if rrule, rerr := recurrence.BuildRRule(rule); rerr == nil {
			event.RRule = rrule
		}
		s.publish(ctx, logger, event)
	}
	return
}

// bookOccurrence validates and books one series date. Expected per-date
// failures are reported in the outcome; only unexpected errors are returned.
func (s *ReservationService) bookOccurrence(ctx context.Context, candidate Reservation, clientNow time.Time) (SeriesOutcome, error) {
	outcome := SeriesOutcome{Date: candidate.Date}

	if err := scheduler.Validate(candidate.Date, candidate.StartTime, candidate.EndTime, clientNow); err != nil {
		var (
			pastErr  *scheduler.PastStartError
			shortErr *scheduler.TooShortDurationError
		)
		switch {
		case errors.As(err, &pastErr):
			outcome.Outcome = OutcomePastStart
		case errors.As(err, &shortErr):
			outcome.Outcome = OutcomeTooShort
		default:
			return outcome, slotError(err)
		}
		outcome.Message = err.Error()
		return outcome, nil
	}

	now := s.now()
	candidate.StartTime = normalizeClock(candidate.StartTime)
	candidate.EndTime = normalizeClock(candidate.EndTime)
	candidate.CreatedAt = now
	candidate.UpdatedAt = now

	created, err := s.reservations.CreateReservation(ctx, candidate)
	if err != nil {
		mapped := mapReservationRepoError(err)
		if errors.Is(mapped, ErrReservationConflict) {
			outcome.Outcome = OutcomeConflict
			outcome.Message = "room is already booked for this time"
			return outcome, nil
		}
		return outcome, mapped
	}

	outcome.Outcome = OutcomeCreated
	outcome.ReservationID = created.ID
	return outcome, nil
}

// GetReservation returns a reservation by id.
func (s *ReservationService) GetReservation(ctx context.Context, principal Principal, id string) (Reservation, error) {
	if s == nil {
		return Reservation{}, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return Reservation{}, fmt.Errorf("reservation repository not configured")
	}
	if strings.TrimSpace(id) == "" {
		return Reservation{}, ErrNotFound
	}

	reservation, err := s.reservations.GetReservation(ctx, strings.TrimSpace(id))
	if err != nil {
		return Reservation{}, mapReservationRepoError(err)
	}
	return reservation, nil
}

// ListReservations returns reservations matching the filters, ordered by
// date and start time. Listing another user's reservations requires admin.
func (s *ReservationService) ListReservations(ctx context.Context, params ListReservationsParams) (reservations []Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		return nil, nil
	}

	userID := strings.TrimSpace(params.UserID)
	logger := s.loggerWith(ctx, "ListReservations",
		"principal_id", params.Principal.UserID,
		"room_id", params.RoomID,
		"user_id", userID,
		"date", params.Date,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list reservations", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(reservations)).InfoContext(ctx, "reservations listed")
	}()

	if userID != "" && userID != params.Principal.UserID && !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if date := strings.TrimSpace(params.Date); date != "" {
		if _, perr := scheduler.ParseDate(date); perr != nil {
			err = newFieldError("date", "date must be YYYY-MM-DD")
			return
		}
	}

	var details []ReservationDetail
	details, err = s.reservations.ListReservations(ctx, ReservationFilter{
		RoomID: strings.TrimSpace(params.RoomID),
		UserID: userID,
		Date:   strings.TrimSpace(params.Date),
	})
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	reservations = make([]Reservation, 0, len(details))
	for _, detail := range details {
		reservations = append(reservations, detail.Reservation)
	}
	return
}

// AdminListReservations returns reservations joined with their owners for
// administrators, filtered by room and date and sorted on request.
func (s *ReservationService) AdminListReservations(ctx context.Context, params AdminListParams) (details []ReservationDetail, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.reservations == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "AdminListReservations",
		"principal_id", params.Principal.UserID,
		"sort_by", params.SortBy,
		"sort_order", params.SortOrder,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list reservations", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(details)).InfoContext(ctx, "reservations listed")
	}()

	filter := ReservationFilter{
		RoomID: strings.TrimSpace(params.RoomID),
		Date:   strings.TrimSpace(params.Date),
		SortBy: strings.ToLower(strings.TrimSpace(params.SortBy)),
	}

	vErr := &ValidationError{}
	if filter.SortBy != "" {
		if _, ok := reservationSortKeys[filter.SortBy]; !ok {
			vErr.add("sort_by", "sort_by must be one of date, start_time, room_name, user_name, status")
		}
	}
	switch strings.ToLower(strings.TrimSpace(params.SortOrder)) {
	case "", "asc":
	case "desc":
		filter.Descending = true
	default:
		vErr.add("sort_order", "sort_order must be asc or desc")
	}
	if filter.Date != "" {
		if _, perr := scheduler.ParseDate(filter.Date); perr != nil {
			vErr.add("date", "date must be YYYY-MM-DD")
		}
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	details, err = s.reservations.ListReservations(ctx, filter)
	if err != nil {
		err = mapReservationRepoError(err)
	}
	return
}

// UpdateReservation moves or edits a confirmed reservation. Empty slot fields
// keep their stored values. The new slot is validated like a new booking and
// checked for overlaps excluding the reservation itself.
func (s *ReservationService) UpdateReservation(ctx context.Context, params UpdateReservationParams) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	principal := params.Principal
	logger := s.loggerWith(ctx, "UpdateReservation",
		"principal_id", principal.UserID,
		"reservation_id", params.ReservationID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation updated")
	}()

	var existing Reservation
	existing, err = s.reservations.GetReservation(ctx, params.ReservationID)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}
	if existing.UserID != principal.UserID && !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if !existing.Active() {
		err = newFieldError("status", "cancelled reservations cannot be changed")
		return
	}

	input := normalizeReservationChanges(params.Input)
	if input.UserID != "" && input.UserID != existing.UserID {
		err = newFieldError("user_id", "owner cannot be changed")
		return
	}
	if input.Title != nil && len(*input.Title) > 200 {
		err = newFieldError("title", "title must be at most 200 characters")
		return
	}
	if input.RoomID == "" {
		input.RoomID = existing.RoomID
	}
	if input.Date == "" {
		input.Date = existing.Date
	}
	if input.StartTime == "" {
		input.StartTime = existing.StartTime
	}
	if input.EndTime == "" {
		input.EndTime = existing.EndTime
	}

	var startTime, endTime string
	startTime, endTime, err = s.validateSlot(input.Date, input.StartTime, input.EndTime, input.TimezoneOffset)
	if err != nil {
		return
	}

	var room Room
	room, err = s.bookableRoom(ctx, input.RoomID)
	if err != nil {
		return
	}

	var owner User
	owner, err = s.owner(ctx, existing.UserID)
	if err != nil {
		return
	}

	updated := existing
	updated.RoomID = room.ID
	updated.RoomName = room.Name
	updated.RoomLocation = room.Location
	updated.Date = input.Date
	updated.StartTime = startTime
	updated.EndTime = endTime
	if input.Title != nil {
		updated.Title = *input.Title
	}
	if input.Description != nil {
		updated.Description = *input.Description
	}
	if input.Participants != nil {
		updated.ParticipantEmails = ParseParticipantEmails(*input.Participants)
	}
	updated.UpdatedAt = s.now()

	reservation, err = s.reservations.UpdateReservation(ctx, updated)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	s.invalidate(ctx, existing.Date)
	if reservation.Date != existing.Date {
		s.invalidate(ctx, reservation.Date)
	}
	s.publish(ctx, logger, reservationEvent(EventReservationUpdated, reservation, owner))
	return
}

// CancelReservation marks a reservation cancelled. Cancelling an already
// cancelled reservation succeeds and returns it unchanged.
func (s *ReservationService) CancelReservation(ctx context.Context, principal Principal, id string) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CancelReservation",
		"principal_id", principal.UserID,
		"reservation_id", id,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation cancelled")
	}()

	var existing Reservation
	existing, err = s.reservations.GetReservation(ctx, id)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}
	if existing.UserID != principal.UserID && !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	reservation, err = s.reservations.CancelReservation(ctx, id, principal.UserID, s.now())
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	if existing.Active() {
		s.invalidate(ctx, reservation.Date)
		owner, _ := s.owner(ctx, reservation.UserID)
		s.publish(ctx, logger, reservationEvent(EventReservationCancelled, reservation, owner))
	}
	return
}

// CancelSeries cancels every confirmed reservation of a series and returns
// how many changed. Repeating the call returns 0.
func (s *ReservationService) CancelSeries(ctx context.Context, principal Principal, seriesID string) (count int, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	seriesID = strings.TrimSpace(seriesID)
	logger := s.loggerWith(ctx, "CancelSeries",
		"principal_id", principal.UserID,
		"series_id", seriesID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel reservation series", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("cancelled_count", count).InfoContext(ctx, "reservation series cancelled")
	}()

	if seriesID == "" {
		err = ErrNotFound
		return
	}

	var members []ReservationDetail
	members, err = s.reservations.ListReservations(ctx, ReservationFilter{SeriesID: seriesID})
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}
	if len(members) == 0 {
		err = ErrNotFound
		return
	}
	for _, member := range members {
		if member.UserID != principal.UserID && !principal.IsAdmin {
			err = ErrUnauthorized
			return
		}
	}

	count, err = s.reservations.CancelSeries(ctx, seriesID, principal.UserID, s.now())
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}
	if count == 0 {
		return
	}

	var dates []string
	for _, member := range members {
		if member.Active() {
			dates = append(dates, member.Date)
			s.invalidate(ctx, member.Date)
		}
	}

	owner, _ := s.owner(ctx, members[0].UserID)
	event := reservationEvent(EventSeriesCancelled, members[0].Reservation, owner)
	event.ReservationID = ""
	event.Date = ""
	event.Dates = dates
	event.CancelledCount = count
	s.publish(ctx, logger, event)
	return
}

// SetCalendarEventID records the external calendar event created for a
// reservation. Only administrators and service accounts may call it.
func (s *ReservationService) SetCalendarEventID(ctx context.Context, principal Principal, id, eventID string) error {
	if s == nil {
		return fmt.Errorf("ReservationService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if s.reservations == nil {
		return fmt.Errorf("reservation repository not configured")
	}

	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return newFieldError("calendar_event_id", "calendar event id is required")
	}

	logger := s.loggerWith(ctx, "SetCalendarEventID",
		"principal_id", principal.UserID,
		"reservation_id", id,
	)
	if err := s.reservations.SetCalendarEventID(ctx, id, eventID); err != nil {
		err = mapReservationRepoError(err)
		logger.ErrorContext(ctx, "failed to record calendar event", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "calendar event recorded")
	return nil
}

// validateSlot applies the booking time rules and returns the normalized
// "HH:mm" start and end.
func (s *ReservationService) validateSlot(date, startTime, endTime string, offset *int) (string, string, error) {
	clientNow := scheduler.ClientNow(s.now(), offset)
	if err := scheduler.Validate(date, startTime, endTime, clientNow); err != nil {
		return "", "", slotError(err)
	}
	return normalizeClock(startTime), normalizeClock(endTime), nil
}

func (s *ReservationService) bookableRoom(ctx context.Context, roomID string) (Room, error) {
	if s.rooms == nil {
		return Room{ID: roomID, IsActive: true}, nil
	}
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		if isNotFoundError(err) {
			return Room{}, newFieldError("room_id", "room does not exist")
		}
		return Room{}, err
	}
	if !room.IsActive {
		return Room{}, newFieldError("room_id", "room is not available for booking")
	}
	return room, nil
}

func (s *ReservationService) owner(ctx context.Context, userID string) (User, error) {
	if s.users == nil {
		return User{ID: userID}, nil
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if isNotFoundError(err) {
			return User{}, newFieldError("user_id", "user does not exist")
		}
		return User{}, err
	}
	if user.Disabled {
		return User{}, newFieldError("user_id", "user is disabled")
	}
	return user, nil
}

func (s *ReservationService) invalidate(ctx context.Context, date string) {
	if s.cache == nil || date == "" {
		return
	}
	s.cache.InvalidateDate(ctx, date)
}

// publish hands the event to the notifier. The reservation change is already
// committed, so failures are logged and swallowed.
func (s *ReservationService) publish(ctx context.Context, logger *slog.Logger, event ReservationEvent) {
	if s.notifier == nil {
		return
	}
	event.OccurredAt = s.now()
	if err := s.notifier.Publish(context.WithoutCancel(ctx), event); err != nil {
		logger.WarnContext(ctx, "failed to publish reservation event",
			"event_type", event.Type,
			"error", err,
			"error_kind", "notification",
		)
	}
}

func reservationEvent(eventType EventType, reservation Reservation, owner User) ReservationEvent {
	event := ReservationEvent{
		Type:           eventType,
		ReservationID:  reservation.ID,
		RoomID:         reservation.RoomID,
		RoomName:       reservation.RoomName,
		RoomLocation:   reservation.RoomLocation,
		Date:           reservation.Date,
		StartTime:      reservation.StartTime,
		EndTime:        reservation.EndTime,
		Title:          reservation.Title,
		Description:    reservation.Description,
		OrganizerID:    reservation.UserID,
		OrganizerName:  owner.DisplayName,
		OrganizerEmail: owner.Email,
		Attendees:      calendarAttendees(reservation.ParticipantEmails, owner.Email),
	}
	if reservation.SeriesID != nil {
		event.SeriesID = *reservation.SeriesID
	}
	if reservation.CalendarEventID != nil {
		event.CalendarEventID = *reservation.CalendarEventID
	}
	return event
}

func normalizeReservationInput(input ReservationInput) ReservationInput {
	return ReservationInput{
		RoomID:         strings.TrimSpace(input.RoomID),
		UserID:         strings.TrimSpace(input.UserID),
		Date:           strings.TrimSpace(input.Date),
		StartTime:      strings.TrimSpace(input.StartTime),
		EndTime:        strings.TrimSpace(input.EndTime),
		Title:          strings.TrimSpace(input.Title),
		Participants:   input.Participants,
		Description:    strings.TrimSpace(input.Description),
		TimezoneOffset: input.TimezoneOffset,
	}
}

func normalizeReservationChanges(changes ReservationChanges) ReservationChanges {
	trimmed := func(value *string) *string {
		if value == nil {
			return nil
		}
		v := strings.TrimSpace(*value)
		return &v
	}
	changes.RoomID = strings.TrimSpace(changes.RoomID)
	changes.UserID = strings.TrimSpace(changes.UserID)
	changes.Date = strings.TrimSpace(changes.Date)
	changes.StartTime = strings.TrimSpace(changes.StartTime)
	changes.EndTime = strings.TrimSpace(changes.EndTime)
	changes.Title = trimmed(changes.Title)
	changes.Description = trimmed(changes.Description)
	return changes
}

func validateReservationInput(input ReservationInput) *ValidationError {
	vErr := &ValidationError{}
	if input.RoomID == "" {
		vErr.add("room_id", "room is required")
	}
	if input.Date == "" {
		vErr.add("date", "date is required")
	}
	if input.StartTime == "" {
		vErr.add("start_time", "start time is required")
	}
	if input.EndTime == "" {
		vErr.add("end_time", "end time is required")
	}
	if len(input.Title) > 200 {
		vErr.add("title", "title must be at most 200 characters")
	}
	return vErr
}

func normalizeSeriesInput(input SeriesInput) SeriesInput {
	input.RoomID = strings.TrimSpace(input.RoomID)
	input.UserID = strings.TrimSpace(input.UserID)
	input.StartDate = strings.TrimSpace(input.StartDate)
	input.EndDate = strings.TrimSpace(input.EndDate)
	input.StartTime = strings.TrimSpace(input.StartTime)
	input.EndTime = strings.TrimSpace(input.EndTime)
	input.RepeatPeriod = strings.TrimSpace(input.RepeatPeriod)
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	return input
}

// buildSeriesRule validates the series template and converts it into a
// recurrence rule. Per-date time rules are applied later.
func buildSeriesRule(input SeriesInput) (recurrence.Rule, error) {
	vErr := &ValidationError{}

	if input.RoomID == "" {
		vErr.add("room_id", "room is required")
	}
	if _, err := scheduler.ParseDate(input.StartDate); err != nil {
		vErr.add("start_date", "start date must be YYYY-MM-DD")
	}
	if _, err := scheduler.ParseDate(input.EndDate); err != nil {
		vErr.add("end_date", "end date must be YYYY-MM-DD")
	}
	if !input.IsAllDay {
		if _, err := scheduler.TimeToMinutes(input.StartTime); err != nil {
			vErr.add("start_time", "start time must be HH:mm")
		}
		if _, err := scheduler.TimeToMinutes(input.EndTime); err != nil {
			vErr.add("end_time", "end time must be HH:mm")
		}
	}
	if input.RepeatEvery <= 0 {
		vErr.add("repeat_every", "repeat interval must be positive")
	}
	period, err := recurrence.ParsePeriod(input.RepeatPeriod)
	if err != nil {
		vErr.add("repeat_period", "repeat period must be day, week, month or year")
	}
	weekdays, err := recurrence.WeekdaysFromInts(input.WeekDays)
	if err != nil {
		vErr.add("week_days", "week days must be between 0 (Sunday) and 6 (Saturday)")
	}
	if vErr.HasErrors() {
		return recurrence.Rule{}, vErr
	}

	return recurrence.Rule{
		StartDate:    input.StartDate,
		EndDate:      input.EndDate,
		StartTime:    input.StartTime,
		EndTime:      input.EndTime,
		IsAllDay:     input.IsAllDay,
		RepeatEvery:  input.RepeatEvery,
		RepeatPeriod: period,
		WeekDays:     weekdays,
	}, nil
}

func mapRecurrenceError(err error) error {
	switch {
	case errors.Is(err, recurrence.ErrNoWeekdays):
		return newFieldError("week_days", "select at least one week day")
	case errors.Is(err, recurrence.ErrInvalidWeekday):
		return newFieldError("week_days", "week days must be between 0 (Sunday) and 6 (Saturday)")
	case errors.Is(err, recurrence.ErrInvalidInterval):
		return newFieldError("repeat_every", "repeat interval must be positive")
	case errors.Is(err, recurrence.ErrInvalidPeriod):
		return newFieldError("repeat_period", "repeat period must be day, week, month or year")
	case errors.Is(err, recurrence.ErrTooManyOccurrences):
		return newFieldError("end_date", "series has too many dates")
	case errors.As(err, new(*scheduler.FormatError)):
		return slotError(err)
	}
	return err
}

// slotError turns malformed date or time input into a field error and passes
// the time rule errors through unchanged.
func slotError(err error) error {
	var formatErr *scheduler.FormatError
	if errors.As(err, &formatErr) {
		field := formatErr.Field
		if field == "" {
			field = "time"
		}
		return newFieldError(field, formatErr.Reason)
	}
	return err
}

func normalizeClock(value string) string {
	minutes, err := scheduler.TimeToMinutes(value)
	if err != nil {
		return value
	}
	normalized, err := scheduler.MinutesToTime(minutes)
	if err != nil {
		return value
	}
	return normalized
}

func mapReservationRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrReservationConflict), errors.Is(err, persistence.ErrConflict):
		return fmt.Errorf("%w: %v", ErrReservationConflict, err)
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return newFieldError("room_id", "room or user does not exist")
	case errors.Is(err, persistence.ErrConstraintViolation):
		return newFieldError("time", "start must be before end")
	}
	return err
}

func isNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}
