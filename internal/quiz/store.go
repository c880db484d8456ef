package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"slices"

	"github.com/wolfman30/cleaning-quiz-platform/internal/pricing"
	"github.com/wolfman30/cleaning-quiz-platform/internal/validation"
	"github.com/wolfman30/cleaning-quiz-platform/pkg/logging"
)

// ProgressKey is the well-known storage key of persisted quiz progress.
const ProgressKey = "cleaning_quiz_progress"

func progressKey(sessionID string) string {
	return ProgressKey + ":" + sessionID
}

// Store holds the in-progress AnswerSet of one session and mirrors its
// PII-free projection to Storage after every patch. It does not validate.
type Store struct {
	storage Storage
	catalog Catalog
	key     string
	answers AnswerSet
	logger  *logging.Logger
}

// NewStore creates an empty store bound to sessionID.
func NewStore(storage Storage, catalog Catalog, sessionID string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		storage: storage,
		catalog: catalog,
		key:     progressKey(sessionID),
		logger:  logger,
	}
}

// Load restores persisted progress. Missing, unreadable or malformed state
// yields an empty AnswerSet.
func (s *Store) Load(ctx context.Context) AnswerSet {
	s.answers = AnswerSet{}
	data, err := s.storage.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("quiz progress unavailable", "error", err)
		}
		return s.answers
	}
	s.answers = DecodeProgress(data, s.catalog)
	return s.answers
}

// Answers returns the current in-memory answers.
func (s *Store) Answers() AnswerSet {
	return s.answers
}

// Patch merges p into the answers and persists the projection. Write failures
// are logged and swallowed.
func (s *Store) Patch(ctx context.Context, p Patch) AnswerSet {
	s.answers = s.answers.Apply(p)
	s.persist(ctx)
	return s.answers
}

// Clear drops persisted progress but keeps the in-memory answers.
func (s *Store) Clear(ctx context.Context) {
	if err := s.storage.Delete(ctx, s.key); err != nil {
		s.logger.Warn("failed to clear quiz progress", "error", err)
	}
}

// Reset drops persisted progress and empties the answers.
func (s *Store) Reset(ctx context.Context) {
	s.Clear(ctx)
	s.answers = AnswerSet{}
}

func (s *Store) persist(ctx context.Context) {
	data, err := EncodeProgress(s.answers)
	if err != nil {
		s.logger.Warn("failed to encode quiz progress", "error", err)
		return
	}
	if err := s.storage.Set(ctx, s.key, data); err != nil {
		s.logger.Warn("failed to persist quiz progress", "error", err)
	}
}

// EncodeProgress serializes the PII-free projection of a.
func EncodeProgress(a AnswerSet) ([]byte, error) {
	return json.Marshal(a.Progress())
}

// DecodeProgress rebuilds answers from persisted bytes field by field;
// unknown, missing or mistyped fields are dropped.
func DecodeProgress(data []byte, catalog Catalog) AnswerSet {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return AnswerSet{}
	}

	var a AnswerSet

	if label, ok := decodeString(raw["serviceOther"]); ok {
		if clean, ferr := validation.OtherLabel(validation.FieldServiceOther, label); ferr == nil {
			a.Service = CustomService(clean)
		}
	}
	if !a.Service.Answered() {
		if v, ok := decodeString(raw["serviceType"]); ok {
			if st := pricing.ServiceType(v); st.Valid() {
				a.Service = ChooseService(st)
			}
		}
	}

	if v, ok := decodeInt(raw["area"]); ok && v >= 1 && v <= validation.MaxArea {
		a.Area = v
	}
	if v, ok := decodeInt(raw["rooms"]); ok && v >= validation.MinRooms && v <= validation.MaxRooms {
		a.Rooms = v
	}
	if v, ok := decodeInt(raw["bathrooms"]); ok && v >= validation.MinRooms && v <= validation.MaxRooms {
		a.Bathrooms = v
	}

	if label, ok := decodeString(raw["extrasOther"]); ok {
		if clean, ferr := validation.OtherLabel(validation.FieldExtrasOther, label); ferr == nil {
			a.Extras = CustomExtras(clean)
		}
	}
	if !a.Extras.Answered() {
		if keys, ok := decodeExtras(raw["extras"], catalog.ExtraKeys()); ok {
			a.Extras = ChooseExtras(keys)
		}
	}

	if v, ok := decodeString(raw["urgency"]); ok && slices.Contains(catalog.Urgencies(), v) {
		a.Urgency = Urgency(v)
	}
	return a
}

func decodeString(msg json.RawMessage) (string, bool) {
	if len(msg) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(msg, &s); err != nil || s == "" {
		return "", false
	}
	return s, true
}

func decodeInt(msg json.RawMessage) (int, bool) {
	if len(msg) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(msg, &f); err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

func decodeExtras(msg json.RawMessage, allowed []string) (map[string]bool, bool) {
	if len(msg) == 0 || string(msg) == "null" {
		return nil, false
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(msg, &entries); err != nil {
		return nil, false
	}
	keys := make(map[string]bool, len(entries))
	for k, v := range entries {
		var on bool
		if err := json.Unmarshal(v, &on); err != nil || !slices.Contains(allowed, k) {
			continue
		}
		keys[k] = on
	}
	return keys, true
}
