// Package doclock serializes workers on a document id. A worker takes a
// short-lived lease before ingesting a document and renews it while the
// ingestion runs, so two workers pulling the same document from different
// queue deliveries cannot write its nodes twice.
package doclock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	// ErrBusy means another holder has a live lease on the document.
	ErrBusy = errors.New("document lease busy")
	// ErrLost means the lease expired or was taken over mid-hold.
	ErrLost = errors.New("document lease lost")
)

type dbConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Client hands out document leases backed by a shared table.
type Client struct {
	db  dbConn
	ttl time.Duration
}

// Lease is a held document lease. Context is canceled when the lease is
// lost, so work guarded by the lease should run under it.
type Lease struct {
	DocumentID string
	Token      string
	Context    context.Context

	client *Client
	cancel context.CancelCauseFunc

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New returns a lease client with the given time-to-live. A non-positive
// ttl defaults to one minute.
func New(pool *pgxpool.Pool, ttl time.Duration) *Client {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Client{db: pool, ttl: ttl}
}

// WithLease runs fn while holding the lease for documentID, releasing it
// afterwards. Fails fast with ErrBusy when the document is already held.
func (c *Client) WithLease(ctx context.Context, documentID string, fn func(ctx context.Context) error) error {
	lease, err := c.Acquire(ctx, documentID)
	if err != nil {
		return err
	}
	defer func() {
		_ = lease.Release(context.Background())
	}()
	return fn(lease.Context)
}

// Acquire takes the lease for documentID, starting a renewal loop that keeps
// it alive until released. An expired lease held by someone else is taken
// over.
func (c *Client) Acquire(ctx context.Context, documentID string) (*Lease, error) {
	if documentID == "" {
		return nil, errors.New("document id is empty")
	}

	token, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	var returnedID string
	err = c.db.QueryRow(ctx, tryAcquireSQL, documentID, token, c.ttl.Milliseconds()).Scan(&returnedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBusy
		}
		return nil, err
	}

	leaseCtx, cancel := context.WithCancelCause(ctx)
	lease := &Lease{
		DocumentID: documentID,
		Token:      token,
		Context:    leaseCtx,
		client:     c,
		cancel:     cancel,
		stopCh:     make(chan struct{}),
	}

	go lease.renewLoop()

	return lease, nil
}

// Release drops the lease and stops its renewal loop. Releasing an already
// lost lease is a no-op.
func (l *Lease) Release(ctx context.Context) error {
	l.stopOnce.Do(func() {
		close(l.stopCh)
		l.cancel(context.Canceled)
	})

	_, err := l.client.db.Exec(ctx, releaseSQL, l.DocumentID, l.Token)
	return err
}

func (l *Lease) renewLoop() {
	interval := l.client.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-l.Context.Done():
			return
		case <-t.C:
			if err := l.renewOnce(); err != nil {
				l.cancel(err)
				return
			}
		}
	}
}

func (l *Lease) renewOnce() error {
	renewCtx, cancel := context.WithTimeout(l.Context, 15*time.Second)
	defer cancel()

	var returnedID string
	err := l.client.db.QueryRow(renewCtx, renewSQL, l.DocumentID, l.Token, l.client.ttl.Milliseconds()).Scan(&returnedID)
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrLost
	}
	return err
}

const tryAcquireSQL = `
INSERT INTO document_leases (document_id, held_by, expires_at)
VALUES ($1, $2, now() + ($3::bigint * interval '1 millisecond'))
ON CONFLICT (document_id) DO UPDATE
SET held_by    = EXCLUDED.held_by,
    expires_at = EXCLUDED.expires_at
WHERE document_leases.expires_at < now()
   OR document_leases.held_by = EXCLUDED.held_by
RETURNING document_id;
`

const renewSQL = `
UPDATE document_leases
SET expires_at = now() + ($3::bigint * interval '1 millisecond')
WHERE document_id = $1 AND held_by = $2
RETURNING document_id;
`

const releaseSQL = `
DELETE FROM document_leases
WHERE document_id = $1 AND held_by = $2;
`
