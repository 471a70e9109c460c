// Package leaselock provides expiring locks kept in a Postgres table. A
// held lease is renewed in the background until it is released; if renewal
// fails the lease context is cancelled with ErrLost.
package leaselock

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrBusy     = errors.New("lease lock busy")
	ErrLost     = errors.New("lease lock lost")
	ErrEmptyKey = errors.New("lease lock key is empty")
)

// DB is satisfied by *pgxpool.Pool and pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Options struct {
	TTL        time.Duration
	RenewEvery time.Duration

	// Wait makes Acquire poll until the lease is free instead of
	// returning ErrBusy.
	Wait         bool
	WaitInterval time.Duration
	WaitJitter   time.Duration

	HolderPrefix string
}

func (o Options) normalized() Options {
	if o.TTL < time.Second {
		o.TTL = 5 * time.Minute
	}
	if o.RenewEvery <= 0 || o.RenewEvery >= o.TTL {
		o.RenewEvery = max(o.TTL/2, 500*time.Millisecond)
	}
	if o.WaitInterval <= 0 {
		o.WaitInterval = 250 * time.Millisecond
	}
	if o.WaitJitter < 0 {
		o.WaitJitter = 0
	}
	return o
}

type Client struct {
	db   DB
	opts Options
}

func New(db DB, opts Options) *Client {
	return &Client{db: db, opts: opts.normalized()}
}

type Lease struct {
	Key    string
	Holder string

	ctx    context.Context
	cancel context.CancelCauseFunc
	client *Client

	stopOnce sync.Once
	stopCh   chan struct{}
}

// Context is cancelled when the lease is released or lost.
func (l *Lease) Context() context.Context {
	return l.ctx
}

// WithLease runs fn while holding the lease for key.
func (c *Client) WithLease(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	lease, err := c.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer func() {
		_ = lease.Release(context.WithoutCancel(ctx))
	}()

	if err := fn(lease.Context()); err != nil {
		if cause := context.Cause(lease.Context()); errors.Is(cause, ErrLost) {
			return errors.Join(err, ErrLost)
		}
		return err
	}
	return nil
}

func (c *Client) Acquire(ctx context.Context, key string) (*Lease, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	holder := c.opts.HolderPrefix + id
	ttlMs := c.opts.TTL.Milliseconds()

	for {
		ok, err := c.tryAcquire(ctx, key, holder, ttlMs)
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if !c.opts.Wait {
			return nil, ErrBusy
		}
		if err := sleepWithJitter(ctx, c.opts.WaitInterval, c.opts.WaitJitter); err != nil {
			return nil, err
		}
	}

	leaseCtx, cancel := context.WithCancelCause(ctx)
	l := &Lease{
		Key:    key,
		Holder: holder,
		ctx:    leaseCtx,
		cancel: cancel,
		client: c,
		stopCh: make(chan struct{}),
	}
	go l.renewLoop(ttlMs)
	return l, nil
}

func (c *Client) tryAcquire(ctx context.Context, key, holder string, ttlMs int64) (bool, error) {
	var returned string
	err := c.db.QueryRow(ctx, tryAcquireSQL, key, holder, ttlMs).Scan(&returned)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return returned != "", nil
}

func (l *Lease) Release(ctx context.Context) error {
	l.stopOnce.Do(func() {
		close(l.stopCh)
		l.cancel(context.Canceled)
	})
	_, err := l.client.db.Exec(ctx, releaseSQL, l.Key, l.Holder)
	return err
}

func (l *Lease) renewLoop(ttlMs int64) {
	t := time.NewTicker(l.client.opts.RenewEvery)
	defer t.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-l.ctx.Done():
			return
		case <-t.C:
			if err := l.renew(ttlMs); err != nil {
				l.cancel(err)
				return
			}
		}
	}
}

func (l *Lease) renew(ttlMs int64) error {
	const attempts = 3
	for attempt := range attempts {
		ctx, cancel := context.WithTimeout(l.ctx, 15*time.Second)
		var returned string
		err := l.client.db.QueryRow(ctx, renewSQL, l.Key, l.Holder, ttlMs).Scan(&returned)
		cancel()
		if err == nil {
			return nil
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrLost
		}
		if attempt == attempts-1 {
			return errors.Join(ErrLost, err)
		}
		if err := sleepWithJitter(l.ctx, 200*time.Millisecond, 0); err != nil {
			return err
		}
	}
	return ErrLost
}

func sleepWithJitter(ctx context.Context, base, jitter time.Duration) error {
	d := base
	if jitter > 0 {
		d += time.Duration(rand.Int64N(int64(jitter) + 1))
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

const tryAcquireSQL = `
INSERT INTO summary_leases (lease_key, holder, expires_at)
VALUES ($1, $2, now() + ($3::bigint * interval '1 millisecond'))
ON CONFLICT (lease_key) DO UPDATE
SET holder     = EXCLUDED.holder,
    expires_at = EXCLUDED.expires_at
WHERE summary_leases.expires_at < now()
   OR summary_leases.holder = EXCLUDED.holder
RETURNING lease_key;
`

const renewSQL = `
UPDATE summary_leases
SET expires_at = now() + ($3::bigint * interval '1 millisecond')
WHERE lease_key = $1 AND holder = $2
RETURNING lease_key;
`

const releaseSQL = `
DELETE FROM summary_leases
WHERE lease_key = $1 AND holder = $2;
`
