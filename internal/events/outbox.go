package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/cleaning-quiz-platform/pkg/logging"
)

const (
	defaultBatchSize   int32 = 25
	defaultMaxAttempts int32 = 8
	defaultInterval          = 2 * time.Second
	maxBackoff               = 15 * time.Minute
	maxErrorLength           = 500
)

// OutboxEntry is an event waiting for delivery.
type OutboxEntry struct {
	ID        uuid.UUID
	Aggregate string
	Type      string
	Payload   json.RawMessage
	Attempts  int32
	CreatedAt time.Time
}

// DeliveryHandler emits events to downstream transports.
type DeliveryHandler interface {
	Handle(ctx context.Context, entry OutboxEntry) error
}

// DeliveryObserver is told the outcome of every attempt: ok, error or dead.
type DeliveryObserver interface {
	ObserveDelivery(eventType, status string)
}

type outboxExec interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// OutboxStore keeps lead events in the leads database for the Deliverer to
// relay. The row is written after the lead itself, outside its transaction:
// a failed insert is logged by the caller and the lead is kept without an event.
type OutboxStore struct {
	db outboxExec
}

func NewOutboxStore(pool *pgxpool.Pool) *OutboxStore {
	if pool == nil {
		panic("events: pgx pool required")
	}
	return &OutboxStore{db: pool}
}

func newOutboxStoreWithExec(exec outboxExec) *OutboxStore {
	if exec == nil {
		panic("events: exec required")
	}
	return &OutboxStore{db: exec}
}

// Insert records an event for the aggregate (a lead id) and returns the event id.
func (s *OutboxStore) Insert(ctx context.Context, aggregate string, eventType string, payload any) (uuid.UUID, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("events: marshal payload: %w", err)
	}
	id := uuid.New()
	const q = `INSERT INTO outbox (id, aggregate, type, payload) VALUES ($1, $2, $3, $4)`
	if _, err := s.db.Exec(ctx, q, id, aggregate, eventType, data); err != nil {
		return uuid.Nil, fmt.Errorf("events: insert outbox: %w", err)
	}
	return id, nil
}

// FetchPending returns undelivered entries that are due at now and have
// not exhausted maxAttempts, oldest first.
func (s *OutboxStore) FetchPending(ctx context.Context, limit, maxAttempts int32, now time.Time) ([]OutboxEntry, error) {
	const q = `
		SELECT id, aggregate, type, payload, attempts, created_at
		FROM outbox
		WHERE delivered_at IS NULL AND attempts < $2 AND next_attempt_at <= $3
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := s.db.Query(ctx, q, limit, maxAttempts, now)
	if err != nil {
		return nil, fmt.Errorf("events: fetch pending: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var (
			e       OutboxEntry
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.Aggregate, &e.Type, &payload, &e.Attempts, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("events: scan outbox: %w", err)
		}
		e.Payload = append(json.RawMessage(nil), payload...)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkDelivered reports false when another worker got there first.
func (s *OutboxStore) MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `UPDATE outbox SET delivered_at = now() WHERE id = $1 AND delivered_at IS NULL`
	ct, err := s.db.Exec(ctx, q, id)
	if err != nil {
		return false, fmt.Errorf("events: mark delivered: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// MarkFailed counts a failed attempt and schedules the next one.
func (s *OutboxStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string, next time.Time) error {
	reason = truncateUTF8(reason, maxErrorLength)
	const q = `
		UPDATE outbox
		SET attempts = attempts + 1, last_error = $2, next_attempt_at = $3
		WHERE id = $1 AND delivered_at IS NULL
	`
	if _, err := s.db.Exec(ctx, q, id, reason, next); err != nil {
		return fmt.Errorf("events: mark failed: %w", err)
	}
	return nil
}

// Deliverer polls the outbox and hands entries to a transport, retrying
// failures with exponential backoff until maxAttempts.
type Deliverer struct {
	store       *OutboxStore
	handler     DeliveryHandler
	observer    DeliveryObserver
	logger      *logging.Logger
	batchSize   int32
	maxAttempts int32
	interval    time.Duration
	now         func() time.Time
}

func NewDeliverer(store *OutboxStore, handler DeliveryHandler, logger *logging.Logger) *Deliverer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Deliverer{
		store:       store,
		handler:     handler,
		logger:      logger,
		batchSize:   defaultBatchSize,
		maxAttempts: defaultMaxAttempts,
		interval:    defaultInterval,
		now:         time.Now,
	}
}

func (d *Deliverer) WithBatchSize(size int32) *Deliverer {
	if size > 0 {
		d.batchSize = size
	}
	return d
}

func (d *Deliverer) WithInterval(interval time.Duration) *Deliverer {
	if interval > 0 {
		d.interval = interval
	}
	return d
}

func (d *Deliverer) WithMaxAttempts(n int32) *Deliverer {
	if n > 0 {
		d.maxAttempts = n
	}
	return d
}

func (d *Deliverer) WithObserver(observer DeliveryObserver) *Deliverer {
	d.observer = observer
	return d
}

// Start drains the outbox every interval until ctx is cancelled.
func (d *Deliverer) Start(ctx context.Context) {
	if d.store == nil || d.handler == nil {
		return
	}
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Drain(ctx)
		}
	}
}

// Drain delivers one batch and returns how many entries were marked delivered.
func (d *Deliverer) Drain(ctx context.Context) int {
	now := d.now().UTC()
	entries, err := d.store.FetchPending(ctx, d.batchSize, d.maxAttempts, now)
	if err != nil {
		d.logger.Error("outbox fetch failed", "error", err)
		return 0
	}
	delivered := 0
	for _, entry := range entries {
		if err := d.handler.Handle(ctx, entry); err != nil {
			d.fail(ctx, entry, err, now)
			continue
		}
		d.observe(entry.Type, "ok")
		ok, err := d.store.MarkDelivered(ctx, entry.ID)
		if err != nil {
			d.logger.Error("failed to mark outbox delivered", "error", err, "event_id", entry.ID)
			continue
		}
		if ok {
			delivered++
		}
	}
	return delivered
}

func (d *Deliverer) fail(ctx context.Context, entry OutboxEntry, cause error, now time.Time) {
	attempt := entry.Attempts + 1
	status := "error"
	if attempt >= d.maxAttempts {
		status = "dead"
		d.logger.Error("outbox event dead-lettered", "error", cause, "event_id", entry.ID, "aggregate", entry.Aggregate, "attempts", attempt)
	} else {
		d.logger.Warn("outbox delivery failed", "error", cause, "event_id", entry.ID, "attempt", attempt)
	}
	d.observe(entry.Type, status)

	if err := d.store.MarkFailed(ctx, entry.ID, cause.Error(), now.Add(d.backoff(entry.Attempts))); err != nil {
		d.logger.Error("failed to record outbox failure", "error", err, "event_id", entry.ID)
	}
}

// backoff doubles the poll interval per previous attempt.
func (d *Deliverer) backoff(previous int32) time.Duration {
	wait := d.interval << min(previous, 16)
	if wait <= 0 || wait > maxBackoff {
		return maxBackoff
	}
	return wait
}

func (d *Deliverer) observe(eventType, status string) {
	if d.observer != nil {
		d.observer.ObserveDelivery(eventType, status)
	}
}
