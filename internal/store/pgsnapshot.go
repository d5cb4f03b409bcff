package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-procure/internal/platform/db"
)

const snapshotSchema = `CREATE TABLE IF NOT EXISTS store_snapshots (
	id BIGSERIAL PRIMARY KEY,
	seq BIGINT NOT NULL,
	taken_at TIMESTAMPTZ NOT NULL,
	payload JSONB NOT NULL
)`

// PGSnapshotter persists store snapshots into PostgreSQL so a restarted
// process can resume from the last committed state.
type PGSnapshotter struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	keep   int

	mu      sync.Mutex
	pending *Snapshot
	saved   int64
	signal  chan struct{}
}

// NewPGSnapshotter constructs a snapshotter retaining the latest keep rows.
func NewPGSnapshotter(pool *pgxpool.Pool, logger *slog.Logger, keep int) *PGSnapshotter {
	if keep <= 0 {
		keep = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PGSnapshotter{pool: pool, logger: logger, keep: keep, signal: make(chan struct{}, 1)}
}

// EnsureSchema creates the snapshot table when missing.
func (p *PGSnapshotter) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, snapshotSchema); err != nil {
		return fmt.Errorf("store: ensure snapshot schema: %w", err)
	}
	return nil
}

// Save writes snap and prunes older rows in one transaction.
func (p *PGSnapshotter) Save(ctx context.Context, snap Snapshot) error {
	payload, err := json.Marshal(snap.Tables)
	if err != nil {
		return fmt.Errorf("store: encode snapshot: %w", err)
	}
	return db.WithTx(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO store_snapshots (seq, taken_at, payload) VALUES ($1, $2, $3)`, snap.Seq, snap.TakenAt, payload); err != nil {
			return fmt.Errorf("store: insert snapshot: %w", err)
		}
		_, err := tx.Exec(ctx, `DELETE FROM store_snapshots WHERE id NOT IN (SELECT id FROM store_snapshots ORDER BY id DESC LIMIT $1)`, p.keep)
		if err != nil {
			return fmt.Errorf("store: prune snapshots: %w", err)
		}
		return nil
	})
}

// LoadLatest returns the most recent snapshot, if any.
func (p *PGSnapshotter) LoadLatest(ctx context.Context) (Snapshot, bool, error) {
	var (
		snap    Snapshot
		payload []byte
	)
	err := p.pool.QueryRow(ctx, `SELECT seq, taken_at, payload FROM store_snapshots ORDER BY id DESC LIMIT 1`).Scan(&snap.Seq, &snap.TakenAt, &payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("store: load snapshot: %w", err)
	}
	if err := json.Unmarshal(payload, &snap.Tables); err != nil {
		return Snapshot{}, false, fmt.Errorf("store: decode snapshot: %w", err)
	}
	p.mu.Lock()
	if snap.Seq > p.saved {
		p.saved = snap.Seq
	}
	p.mu.Unlock()
	return snap, true, nil
}

// Offer queues snap for the writer loop. Only the newest pending snapshot is
// kept. Offer matches CommitHook so it can be passed to Store.OnCommit.
func (p *PGSnapshotter) Offer(_ context.Context, snap Snapshot) {
	p.mu.Lock()
	if snap.Seq <= p.saved || (p.pending != nil && snap.Seq <= p.pending.Seq) {
		p.mu.Unlock()
		return
	}
	p.pending = &snap
	p.mu.Unlock()
	select {
	case p.signal <- struct{}{}:
	default:
	}
}

// Run writes offered snapshots until ctx is cancelled, then flushes the
// last pending one.
func (p *PGSnapshotter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			p.flush(flushCtx)
			cancel()
			return nil
		case <-p.signal:
			p.flush(ctx)
		}
	}
}

func (p *PGSnapshotter) take() (Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return Snapshot{}, false
	}
	snap := *p.pending
	p.pending = nil
	return snap, true
}

func (p *PGSnapshotter) flush(ctx context.Context) {
	snap, ok := p.take()
	if !ok {
		return
	}
	if err := p.Save(ctx, snap); err != nil {
		p.logger.Error("persist store snapshot", slog.Int64("seq", snap.Seq), slog.Any("error", err))
		return
	}
	p.mu.Lock()
	if snap.Seq > p.saved {
		p.saved = snap.Seq
	}
	p.mu.Unlock()
	p.logger.Debug("store snapshot persisted", slog.Int64("seq", snap.Seq))
}
