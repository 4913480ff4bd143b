package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository using SQLite
type SessionRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSessionRepository creates a new SQLite session repository
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const sessionColumns = `id, user_id, fingerprint, expires_at, revoked_at, created_at, updated_at`

// CreateSession stores a new session for a user
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if session.ID == "" || session.UserID == "" || session.ExpiresAt.IsZero() {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	session = normalizeSession(session)
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.CreatedAt
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		session.Fingerprint,
		formatTime(session.ExpiresAt),
		nullTime(session.RevokedAt),
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}
	return session, nil
}

// GetSession retrieves a session by ID
func (r *SessionRepository) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}
	session, err := scanSession(r.helper.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}
	return session, nil
}

// RevokeSession marks a session as revoked. Revoking twice keeps the first
// revocation time.
func (r *SessionRepository) RevokeSession(ctx context.Context, id string, revokedAt time.Time) (persistence.Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	var revoked persistence.Session
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		current, err := scanSession(r.helper.QueryRowTx(ctx, tx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
		if err != nil {
			return r.mapper.MapError(err)
		}
		if current.RevokedAt != nil {
			revoked = current
			return nil
		}

		at := revokedAt.UTC()
		if _, err := r.helper.ExecTx(ctx, tx,
			`UPDATE sessions SET revoked_at = ?, updated_at = ? WHERE id = ?`,
			formatTime(at), formatTime(at), id,
		); err != nil {
			return r.mapper.MapError(err)
		}
		current.RevokedAt = &at
		current.UpdatedAt = at
		revoked = current
		return nil
	})
	if err != nil {
		return persistence.Session{}, err
	}
	return revoked, nil
}

// DeleteExpiredSessions removes sessions that expired on or before reference
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	_, err := r.helper.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, formatTime(reference))
	return r.mapper.MapError(err)
}

func normalizeSession(session persistence.Session) persistence.Session {
	session.Fingerprint = strings.TrimSpace(session.Fingerprint)
	session.ExpiresAt = session.ExpiresAt.UTC()
	session.CreatedAt = session.CreatedAt.UTC()
	session.UpdatedAt = session.UpdatedAt.UTC()
	if session.RevokedAt != nil {
		revoked := session.RevokedAt.UTC()
		session.RevokedAt = &revoked
	}
	return session
}

func scanSession(row rowScanner) (persistence.Session, error) {
	var (
		session                         persistence.Session
		expiresAt, createdAt, updatedAt string
		revokedAt                       sql.NullString
	)
	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Fingerprint,
		&expiresAt,
		&revokedAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Session{}, err
	}

	var err error
	if session.ExpiresAt, err = parseTime("expires_at", expiresAt); err != nil {
		return persistence.Session{}, err
	}
	if session.RevokedAt, err = parseNullTime("revoked_at", revokedAt); err != nil {
		return persistence.Session{}, err
	}
	if session.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Session{}, err
	}
	if session.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Session{}, err
	}
	return session, nil
}
