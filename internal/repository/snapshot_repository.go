package repository

import (
	"context"
	"sort"

	"nodepulse/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

const createNodeSnapshotsTable = `
CREATE TABLE IF NOT EXISTS node_snapshots (
    observed_at  TIMESTAMPTZ NOT NULL PRIMARY KEY,
    total_nodes  BIGINT      NOT NULL,
    tor_nodes    BIGINT      NOT NULL,
    active_nodes BIGINT      NOT NULL
);
`

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// SnapshotRepository persists the bounded snapshot history. The table is
// rewritten after every successful refresh and pruned to the window
// capacity so it never outgrows the in-memory history.
type SnapshotRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewSnapshotRepository(pool PgxPool, tracer trace.Tracer) *SnapshotRepository {
	return &SnapshotRepository{pool: pool, tracer: tracer}
}

func (r *SnapshotRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "snapshot-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createNodeSnapshotsTable)
	return err
}

// SaveHistory upserts the window and prunes rows beyond capacity,
// oldest first.
func (r *SnapshotRepository) SaveHistory(ctx context.Context, snapshots []domain.Snapshot, capacity int) error {
	if len(snapshots) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "snapshot-repo.save-history")
	defer span.End()

	batch := &pgx.Batch{}
	for _, s := range snapshots {
		batch.Queue(
			`INSERT INTO node_snapshots (observed_at, total_nodes, tor_nodes, active_nodes)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (observed_at) DO UPDATE SET
			     total_nodes = EXCLUDED.total_nodes,
			     tor_nodes = EXCLUDED.tor_nodes,
			     active_nodes = EXCLUDED.active_nodes`,
			s.Timestamp, s.TotalNodes, s.TorNodes, s.ActiveNodes,
		)
	}
	batch.Queue(
		`DELETE FROM node_snapshots
		 WHERE observed_at NOT IN (
		     SELECT observed_at FROM node_snapshots
		     ORDER BY observed_at DESC
		     LIMIT $1
		 )`,
		capacity,
	)

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < len(snapshots)+1; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadHistory returns up to limit snapshots ordered oldest first.
func (r *SnapshotRepository) LoadHistory(ctx context.Context, limit int) ([]domain.Snapshot, error) {
	_, span := r.tracer.Start(ctx, "snapshot-repo.load-history")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT observed_at, total_nodes, tor_nodes, active_nodes
		 FROM node_snapshots
		 ORDER BY observed_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []domain.Snapshot
	for rows.Next() {
		var s domain.Snapshot
		if err := rows.Scan(&s.Timestamp, &s.TotalNodes, &s.TorNodes, &s.ActiveNodes); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Timestamp.Before(snapshots[j].Timestamp)
	})
	return snapshots, nil
}
