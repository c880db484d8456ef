package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SessionKey prefixes the server-side session record.
const SessionKey = "cleaning_quiz_session"

// ErrSessionNotFound is returned when a session id is unknown or expired.
var ErrSessionNotFound = errors.New("quiz: session not found")

// Session is the navigation state of one quiz instance. It is stored apart
// from the answers so the PII-free progress keeps its fixed shape.
type Session struct {
	ID          string    `json:"id"`
	Step        StepID    `json:"step"`
	StartedAt   time.Time `json:"startedAt"`
	Submitted   bool      `json:"submitted"`
	SubmittedAt time.Time `json:"submittedAt,omitzero"`
	LeadID      string    `json:"leadId,omitempty"`
}

type sessionRepository struct {
	storage Storage
}

func sessionKey(id string) string {
	return SessionKey + ":" + id
}

func (r sessionRepository) load(ctx context.Context, id string) (Session, error) {
	data, err := r.storage.Get(ctx, sessionKey(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil || s.ID != id {
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

func (r sessionRepository) save(ctx context.Context, s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("quiz: encode session: %w", err)
	}
	return r.storage.Set(ctx, sessionKey(s.ID), data)
}

func (r sessionRepository) delete(ctx context.Context, id string) error {
	return r.storage.Delete(ctx, sessionKey(id))
}
