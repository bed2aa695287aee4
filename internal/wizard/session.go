package wizard

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	sessionExpiry = 7 * 24 * time.Hour
	// a submission older than this is assumed to have died with the process
	submitLease = 2 * time.Minute

	// CookieName is the cookie holding the wizard session ID.
	CookieName = "sf_wizard"
)

// ErrNoSession is returned by Load when the request carries no usable session.
var ErrNoSession = errors.New("no wizard session")

// SessionStore keeps wizard state in SQLite, keyed by a cookie.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore creates a session store.
func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Create stores st under a new session ID and sets the cookie.
func (s *SessionStore) Create(w http.ResponseWriter, st State) (string, error) {
	id, err := generateSessionID()
	if err != nil {
		return "", fmt.Errorf("generating session ID: %w", err)
	}

	raw, err := json.Marshal(st)
	if err != nil {
		return "", fmt.Errorf("encoding wizard state: %w", err)
	}

	now := time.Now()
	expiresAt := now.Add(sessionExpiry)
	if _, err := s.db.Exec(
		"INSERT INTO wizard_sessions (id, state_json, expires_at, updated_at) VALUES (?, ?, ?, ?)",
		id, string(raw), expiresAt, now,
	); err != nil {
		return "", fmt.Errorf("storing wizard session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id, nil
}

// Load returns the session ID and state for the request's cookie.
func (s *SessionStore) Load(r *http.Request) (string, State, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", State{}, ErrNoSession
	}

	var raw string
	var expiresAt time.Time
	err = s.db.QueryRow(
		"SELECT state_json, expires_at FROM wizard_sessions WHERE id = ?",
		cookie.Value,
	).Scan(&raw, &expiresAt)
	if err == sql.ErrNoRows {
		return "", State{}, ErrNoSession
	}
	if err != nil {
		return "", State{}, fmt.Errorf("querying wizard session: %w", err)
	}

	if time.Now().After(expiresAt) {
		if _, delErr := s.db.Exec("DELETE FROM wizard_sessions WHERE id = ?", cookie.Value); delErr != nil {
			return "", State{}, fmt.Errorf("deleting expired wizard session: %w", delErr)
		}
		return "", State{}, ErrNoSession
	}

	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return "", State{}, fmt.Errorf("decoding wizard state: %w", err)
	}

	return cookie.Value, st, nil
}

// Save overwrites the stored state, releases any submit claim and extends the expiry.
func (s *SessionStore) Save(id string, st State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding wizard state: %w", err)
	}

	now := time.Now()
	result, err := s.db.Exec(
		"UPDATE wizard_sessions SET state_json = ?, status = 'idle', expires_at = ?, updated_at = ? WHERE id = ?",
		string(raw), now.Add(sessionExpiry), now, id,
	)
	if err != nil {
		return fmt.Errorf("saving wizard session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNoSession
	}
	return nil
}

// BeginSubmit claims the session for a submission and returns the state as
// stored at claim time. A second claim while the first is still running
// fails with ErrSubmitInFlight.
func (s *SessionStore) BeginSubmit(id string) (State, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return State{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	result, err := tx.Exec(
		`UPDATE wizard_sessions SET status = 'submitting', updated_at = ?
		 WHERE id = ? AND (status = 'idle' OR updated_at < ?)`,
		now, id, now.Add(-submitLease),
	)
	if err != nil {
		return State{}, fmt.Errorf("claiming wizard session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return State{}, fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return State{}, ErrSubmitInFlight
	}

	var raw string
	if err := tx.QueryRow("SELECT state_json FROM wizard_sessions WHERE id = ?", id).Scan(&raw); err != nil {
		return State{}, fmt.Errorf("reading claimed wizard session: %w", err)
	}
	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return State{}, fmt.Errorf("decoding wizard state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return State{}, fmt.Errorf("committing claim: %w", err)
	}
	return st, nil
}

// Destroy removes the session and clears the cookie.
func (s *SessionStore) Destroy(w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}

	if _, err := s.db.Exec("DELETE FROM wizard_sessions WHERE id = ?", cookie.Value); err != nil {
		return fmt.Errorf("deleting wizard session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// Cleanup removes expired sessions and returns how many were deleted.
func (s *SessionStore) Cleanup() (int64, error) {
	result, err := s.db.Exec("DELETE FROM wizard_sessions WHERE expires_at < ?", time.Now())
	if err != nil {
		return 0, fmt.Errorf("cleaning up wizard sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
