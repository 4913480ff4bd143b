package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/scheduler"
)

// ReservationRepository implements persistence.ReservationRepository using
// SQLite.
//
// Writes that can introduce an overlap take an in-process lock on the
// (room, date) slot and run the conflict scan and the write in one
// BEGIN IMMEDIATE transaction, so concurrent bookings of the same slot are
// serialized both within this process and across processes sharing the file.
type ReservationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	locks  *KeyedMutex
	retry  *RetryHelper
}

// NewReservationRepository creates a new SQLite reservation repository
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	return &ReservationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		locks:  NewKeyedMutex(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

var reservationColumnNames = []string{
	"id", "room_id", "user_id", "room_name", "room_location", "date", "start_time", "end_time",
	"title", "description", "participant_emails", "status", "series_id",
	"repeat_every", "repeat_period", "week_days", "calendar_event_id",
	"created_at", "updated_at", "cancelled_at", "cancelled_by",
}

const (
	statusConfirmed = string(persistence.ReservationConfirmed)
	statusCancelled = string(persistence.ReservationCancelled)
)

var (
	reservationColumns = strings.Join(reservationColumnNames, ", ")
	reservationInsert  = fmt.Sprintf("INSERT INTO reservations (%s) VALUES (%s)",
		reservationColumns, strings.TrimSuffix(strings.Repeat("?, ", len(reservationColumnNames)), ", "))
)

// CreateReservation inserts a reservation. A confirmed reservation that
// overlaps another confirmed reservation of the same room and date is
// rejected with persistence.ErrConflict.
func (r *ReservationRepository) CreateReservation(ctx context.Context, reservation persistence.Reservation) error {
	start, end, err := validateReservation(reservation)
	if err != nil {
		return err
	}
	if reservation.Status == "" {
		reservation.Status = persistence.ReservationConfirmed
	}
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = time.Now().UTC()
	}
	if reservation.UpdatedAt.IsZero() {
		reservation.UpdatedAt = reservation.CreatedAt
	}

	unlock := r.locks.Lock(slotKey(reservation.RoomID, reservation.Date))
	defer unlock()

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if reservation.Status == persistence.ReservationConfirmed {
				if err := r.checkConflict(ctx, tx, reservation.RoomID, reservation.Date, start, end, ""); err != nil {
					return err
				}
			}
			_, err := r.helper.ExecTx(ctx, tx, reservationInsert, reservationArgs(reservation)...)
			return r.mapper.MapError(err)
		})
	})
}

// UpdateReservation moves a confirmed reservation to a new room, date or
// time range and updates its descriptive fields. The reservation itself is
// ignored by the overlap check.
func (r *ReservationRepository) UpdateReservation(ctx context.Context, reservation persistence.Reservation) error {
	start, end, err := validateReservation(reservation)
	if err != nil {
		return err
	}
	if reservation.UpdatedAt.IsZero() {
		reservation.UpdatedAt = time.Now().UTC()
	}

	unlock := r.locks.Lock(slotKey(reservation.RoomID, reservation.Date))
	defer unlock()

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			var status string
			if err := r.helper.QueryRowTx(ctx, tx, `SELECT status FROM reservations WHERE id = ?`, reservation.ID).Scan(&status); err != nil {
				return r.mapper.MapError(err)
			}
			if persistence.ReservationStatus(status) != persistence.ReservationConfirmed {
				return fmt.Errorf("%w: reservation %s is %s", persistence.ErrConstraintViolation, reservation.ID, status)
			}

			if err := r.checkConflict(ctx, tx, reservation.RoomID, reservation.Date, start, end, reservation.ID); err != nil {
				return err
			}

			_, err := r.helper.ExecTx(ctx, tx, `
				UPDATE reservations
				SET room_id = ?, room_name = ?, room_location = ?, date = ?, start_time = ?, end_time = ?,
					title = ?, description = ?, participant_emails = ?, updated_at = ?
				WHERE id = ?`,
				reservation.RoomID,
				reservation.RoomName,
				reservation.RoomLocation,
				reservation.Date,
				reservation.StartTime,
				reservation.EndTime,
				reservation.Title,
				reservation.Description,
				encodeStringList(reservation.ParticipantEmails),
				formatTime(reservation.UpdatedAt),
				reservation.ID,
			)
			return r.mapper.MapError(err)
		})
	})
}

// GetReservation retrieves a reservation by ID
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	if id == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	reservation, err := scanReservation(row)
	if err != nil {
		return persistence.Reservation{}, r.mapper.MapError(err)
	}
	return reservation, nil
}

// ListReservations returns reservations matching filter
func (r *ReservationRepository) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	details, err := r.ListReservationDetails(ctx, filter)
	if err != nil {
		return nil, err
	}
	reservations := make([]persistence.Reservation, 0, len(details))
	for _, d := range details {
		reservations = append(reservations, d.Reservation)
	}
	return reservations, nil
}

// ListReservationDetails returns reservations joined with their owner's name
// and email.
func (r *ReservationRepository) ListReservationDetails(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.ReservationDetail, error) {
	query, args := buildReservationQuery(filter)

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var details []persistence.ReservationDetail
	for rows.Next() {
		detail, err := scanReservationDetail(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		details = append(details, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return details, nil
}

// CancelReservation marks a reservation cancelled. Cancelling an already
// cancelled reservation succeeds and leaves the original cancellation
// metadata untouched.
func (r *ReservationRepository) CancelReservation(ctx context.Context, id, cancelledBy string, at time.Time) (persistence.Reservation, error) {
	if id == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}

	var cancelled persistence.Reservation
	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			current, err := scanReservation(r.helper.QueryRowTx(ctx, tx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
			if err != nil {
				return r.mapper.MapError(err)
			}
			if current.Status == persistence.ReservationCancelled {
				cancelled = current
				return nil
			}

			at := at.UTC()
			if _, err := r.helper.ExecTx(ctx, tx, `
				UPDATE reservations
				SET status = ?, cancelled_at = ?, cancelled_by = ?, updated_at = ?
				WHERE id = ? AND status = ?`,
				statusCancelled, formatTime(at), cancelledBy, formatTime(at),
				id, statusConfirmed,
			); err != nil {
				return r.mapper.MapError(err)
			}

			current.Status = persistence.ReservationCancelled
			current.CancelledAt = &at
			current.CancelledBy = &cancelledBy
			current.UpdatedAt = at
			cancelled = current
			return nil
		})
	})
	if err != nil {
		return persistence.Reservation{}, err
	}
	return cancelled, nil
}

// CancelSeries cancels every confirmed reservation of a series in one
// statement and returns how many changed. An unknown series is
// persistence.ErrNotFound; a fully cancelled series yields 0.
func (r *ReservationRepository) CancelSeries(ctx context.Context, seriesID, cancelledBy string, at time.Time) (int, error) {
	if seriesID == "" {
		return 0, persistence.ErrNotFound
	}

	var affected int64
	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			var members int
			if err := r.helper.QueryRowTx(ctx, tx, `SELECT COUNT(*) FROM reservations WHERE series_id = ?`, seriesID).Scan(&members); err != nil {
				return r.mapper.MapError(err)
			}
			if members == 0 {
				return persistence.ErrNotFound
			}

			stamp := formatTime(at)
			result, err := r.helper.ExecTx(ctx, tx, `
				UPDATE reservations
				SET status = ?, cancelled_at = ?, cancelled_by = ?, updated_at = ?
				WHERE series_id = ? AND status = ?`,
				statusCancelled, stamp, cancelledBy, stamp,
				seriesID, statusConfirmed,
			)
			if err != nil {
				return r.mapper.MapError(err)
			}
			affected, err = result.RowsAffected()
			return err
		})
	})
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// SetCalendarEventID records the external calendar event of a reservation
func (r *ReservationRepository) SetCalendarEventID(ctx context.Context, id, eventID string) error {
	result, err := r.helper.Exec(ctx,
		`UPDATE reservations SET calendar_event_id = ?, updated_at = ? WHERE id = ?`,
		eventID, formatTime(time.Now()), id,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// checkConflict scans the confirmed reservations of a slot inside tx.
func (r *ReservationRepository) checkConflict(ctx context.Context, tx *sql.Tx, roomID, date string, start, end int, excludeID string) error {
	rows, err := r.helper.QueryTx(ctx, tx, `
		SELECT id, user_id, start_time, end_time
		FROM reservations
		WHERE room_id = ? AND date = ? AND status = ? AND id <> ?`,
		roomID, date, statusConfirmed, excludeID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	defer rows.Close()

	var bookings []scheduler.Booking
	for rows.Next() {
		var id, userID, startTime, endTime string
		if err := rows.Scan(&id, &userID, &startTime, &endTime); err != nil {
			return r.mapper.MapError(err)
		}
		booking, err := scheduler.NewBooking(id, userID, startTime, endTime)
		if err != nil {
			return fmt.Errorf("stored reservation %s: %w", id, err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return r.mapper.MapError(err)
	}

	if existing, found := scheduler.FindConflict(bookings, start, end); found {
		return fmt.Errorf("%w: overlaps reservation %s", persistence.ErrConflict, existing.ID)
	}
	return nil
}

func validateReservation(reservation persistence.Reservation) (int, int, error) {
	if reservation.ID == "" || reservation.RoomID == "" || reservation.UserID == "" {
		return 0, 0, persistence.ErrConstraintViolation
	}
	if _, err := scheduler.ParseDate(reservation.Date); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
	}
	booking, err := scheduler.NewBooking(reservation.ID, reservation.UserID, reservation.StartTime, reservation.EndTime)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
	}
	if booking.Start >= booking.End {
		return 0, 0, fmt.Errorf("%w: start must precede end", persistence.ErrConstraintViolation)
	}
	return booking.Start, booking.End, nil
}

func reservationArgs(res persistence.Reservation) []any {
	var (
		repeatEvery  sql.NullInt64
		repeatPeriod sql.NullString
		weekDays     sql.NullInt64
	)
	if res.Recurrence != nil {
		repeatEvery = sql.NullInt64{Int64: int64(res.Recurrence.RepeatEvery), Valid: true}
		repeatPeriod = sql.NullString{String: res.Recurrence.RepeatPeriod, Valid: true}
		weekDays = sql.NullInt64{Int64: encodeWeekdays(res.Recurrence.WeekDays), Valid: true}
	}

	return []any{
		res.ID,
		res.RoomID,
		res.UserID,
		res.RoomName,
		res.RoomLocation,
		res.Date,
		res.StartTime,
		res.EndTime,
		res.Title,
		res.Description,
		encodeStringList(res.ParticipantEmails),
		string(res.Status),
		nullString(res.SeriesID),
		repeatEvery,
		repeatPeriod,
		weekDays,
		nullString(res.CalendarEventID),
		formatTime(res.CreatedAt),
		formatTime(res.UpdatedAt),
		nullTime(res.CancelledAt),
		nullString(res.CancelledBy),
	}
}

var reservationSortColumns = map[persistence.ReservationSort]string{
	persistence.SortByDate:      "r.date",
	persistence.SortByStartTime: "r.start_time",
	persistence.SortByRoomName:  "r.room_name",
	persistence.SortByUserName:  "u.display_name",
	persistence.SortByStatus:    "r.status",
}

func buildReservationQuery(filter persistence.ReservationFilter) (string, []any) {
	prefixed := make([]string, len(reservationColumnNames))
	for i, column := range reservationColumnNames {
		prefixed[i] = "r." + column
	}

	var (
		conditions []string
		args       []any
	)
	if filter.RoomID != "" {
		conditions = append(conditions, "r.room_id = ?")
		args = append(args, filter.RoomID)
	}
	if filter.UserID != "" {
		conditions = append(conditions, "r.user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Date != "" {
		conditions = append(conditions, "r.date = ?")
		args = append(args, filter.Date)
	}
	if filter.SeriesID != "" {
		conditions = append(conditions, "r.series_id = ?")
		args = append(args, filter.SeriesID)
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "r.status = ?")
		args = append(args, statusConfirmed)
	}

	var query strings.Builder
	query.WriteString("SELECT ")
	query.WriteString(strings.Join(prefixed, ", "))
	query.WriteString(", COALESCE(u.display_name, ''), COALESCE(u.email, '')")
	query.WriteString(" FROM reservations r LEFT JOIN users u ON u.id = r.user_id")
	if len(conditions) > 0 {
		query.WriteString(" WHERE ")
		query.WriteString(strings.Join(conditions, " AND "))
	}

	direction := "ASC"
	if filter.Descending {
		direction = "DESC"
	}
	query.WriteString(" ORDER BY ")
	if column, ok := reservationSortColumns[filter.SortBy]; ok {
		query.WriteString(column + " " + direction + ", ")
	}
	query.WriteString("r.date " + direction + ", r.start_time " + direction + ", r.id ASC")

	return query.String(), args
}

type reservationRow struct {
	res                  persistence.Reservation
	participants, status string
	seriesID, period     sql.NullString
	calendarEventID      sql.NullString
	cancelledAt          sql.NullString
	cancelledBy          sql.NullString
	repeatEvery          sql.NullInt64
	weekDays             sql.NullInt64
	createdAt, updatedAt string
}

func (row *reservationRow) targets() []any {
	return []any{
		&row.res.ID,
		&row.res.RoomID,
		&row.res.UserID,
		&row.res.RoomName,
		&row.res.RoomLocation,
		&row.res.Date,
		&row.res.StartTime,
		&row.res.EndTime,
		&row.res.Title,
		&row.res.Description,
		&row.participants,
		&row.status,
		&row.seriesID,
		&row.repeatEvery,
		&row.period,
		&row.weekDays,
		&row.calendarEventID,
		&row.createdAt,
		&row.updatedAt,
		&row.cancelledAt,
		&row.cancelledBy,
	}
}

func (row *reservationRow) decode() (persistence.Reservation, error) {
	res := row.res
	res.Status = persistence.ReservationStatus(row.status)
	res.SeriesID = stringPtr(row.seriesID)
	res.CalendarEventID = stringPtr(row.calendarEventID)
	res.CancelledBy = stringPtr(row.cancelledBy)
	if row.repeatEvery.Valid {
		res.Recurrence = &persistence.RecurrenceRule{
			RepeatEvery:  int(row.repeatEvery.Int64),
			RepeatPeriod: row.period.String,
			WeekDays:     decodeWeekdays(row.weekDays.Int64),
		}
	}

	var err error
	if res.ParticipantEmails, err = decodeStringList("participant_emails", row.participants); err != nil {
		return persistence.Reservation{}, err
	}
	if res.CreatedAt, err = parseTime("created_at", row.createdAt); err != nil {
		return persistence.Reservation{}, err
	}
	if res.UpdatedAt, err = parseTime("updated_at", row.updatedAt); err != nil {
		return persistence.Reservation{}, err
	}
	if res.CancelledAt, err = parseNullTime("cancelled_at", row.cancelledAt); err != nil {
		return persistence.Reservation{}, err
	}
	return res, nil
}

func scanReservation(scanner rowScanner) (persistence.Reservation, error) {
	var row reservationRow
	if err := scanner.Scan(row.targets()...); err != nil {
		return persistence.Reservation{}, err
	}
	return row.decode()
}

func scanReservationDetail(scanner rowScanner) (persistence.ReservationDetail, error) {
	var (
		row   reservationRow
		name  string
		email string
	)
	if err := scanner.Scan(append(row.targets(), &name, &email)...); err != nil {
		return persistence.ReservationDetail{}, err
	}
	res, err := row.decode()
	if err != nil {
		return persistence.ReservationDetail{}, err
	}
	return persistence.ReservationDetail{Reservation: res, UserName: name, UserEmail: email}, nil
}
