package store

import (
	"database/sql"
	"errors"
	"time"
)

// Session represents one detection run: when it started and ended and how
// much was processed. Only totals are stored; per-frame results and track
// history never touch the database.
type Session struct {
	ID        string
	StartedAt time.Time
	EndedAt   *time.Time
	Frames    int64
	Faces     int64
}

// SessionRepository provides operations for session summaries.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Begin inserts a new open session.
func (r *SessionRepository) Begin(sess *Session) error {
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, started_at, frames, faces) VALUES (?, ?, 0, 0)`,
		sess.ID, sess.StartedAt,
	)
	return err
}

// Finish closes a session, recording totals and per-emotion face counts.
func (r *SessionRepository) Finish(id string, frames, faces int64, emotionCounts map[string]int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE sessions SET ended_at = ?, frames = ?, faces = ? WHERE id = ?`,
		time.Now(), frames, faces, id,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	for label, count := range emotionCounts {
		if count == 0 {
			continue
		}
		if _, err := tx.Exec(
			`INSERT INTO session_emotions (session_id, label, faces) VALUES (?, ?, ?)`,
			id, label, count,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	sess := &Session{}
	var endedAt sql.NullTime

	err := r.db.QueryRow(
		`SELECT id, started_at, ended_at, frames, faces FROM sessions WHERE id = ?`,
		id,
	).Scan(&sess.ID, &sess.StartedAt, &endedAt, &sess.Frames, &sess.Faces)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if endedAt.Valid {
		sess.EndedAt = &endedAt.Time
	}
	return sess, nil
}

// EmotionCounts returns the per-emotion face counts recorded for a session.
func (r *SessionRepository) EmotionCounts(id string) (map[string]int64, error) {
	rows, err := r.db.Query(
		`SELECT label, faces FROM session_emotions WHERE session_id = ?`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var label string
		var faces int64
		if err := rows.Scan(&label, &faces); err != nil {
			return nil, err
		}
		counts[label] = faces
	}

	return counts, rows.Err()
}

// List returns all sessions, most recent first.
func (r *SessionRepository) List() ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT id, started_at, ended_at, frames, faces FROM sessions ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess := &Session{}
		var endedAt sql.NullTime
		if err := rows.Scan(&sess.ID, &sess.StartedAt, &endedAt, &sess.Frames, &sess.Faces); err != nil {
			return nil, err
		}
		if endedAt.Valid {
			sess.EndedAt = &endedAt.Time
		}
		sessions = append(sessions, sess)
	}

	return sessions, rows.Err()
}
