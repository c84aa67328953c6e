package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"nodepulse/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

// fakePool keeps rows in memory and replays them through the pgx
// interfaces, enough to exercise save/load round trips.
type fakePool struct {
	rows     []domain.Snapshot
	execErr  error
	queryErr error
	batches  int
}

func (f *fakePool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakePool) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	f.batches++
	var capacity int
	for _, q := range b.QueuedQueries {
		if strings.HasPrefix(strings.TrimSpace(q.SQL), "INSERT") {
			snap := domain.Snapshot{
				Timestamp:   q.Arguments[0].(time.Time),
				TotalNodes:  q.Arguments[1].(int),
				TorNodes:    q.Arguments[2].(int),
				ActiveNodes: q.Arguments[3].(int),
			}
			f.upsert(snap)
			continue
		}
		capacity = q.Arguments[0].(int)
	}
	if capacity > 0 && len(f.rows) > capacity {
		f.rows = f.rows[len(f.rows)-capacity:]
	}
	return &fakeBatchResults{count: len(b.QueuedQueries)}
}

func (f *fakePool) upsert(snap domain.Snapshot) {
	for i, existing := range f.rows {
		if existing.Timestamp.Equal(snap.Timestamp) {
			f.rows[i] = snap
			return
		}
	}
	f.rows = append(f.rows, snap)
	sort.Slice(f.rows, func(i, j int) bool {
		return f.rows[i].Timestamp.Before(f.rows[j].Timestamp)
	})
}

func (f *fakePool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	limit := len(f.rows)
	if len(args) > 0 {
		if n, ok := args[0].(int); ok && n < limit {
			limit = n
		}
	}
	// Query orders newest first.
	newest := make([]domain.Snapshot, len(f.rows))
	copy(newest, f.rows)
	sort.Slice(newest, func(i, j int) bool {
		return newest[i].Timestamp.After(newest[j].Timestamp)
	})
	return &fakeRows{rows: newest[:limit]}, nil
}

type fakeBatchResults struct {
	count int
	next  int
}

func (f *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	if f.next >= f.count {
		return pgconn.CommandTag{}, errors.New("no more results")
	}
	f.next++
	return pgconn.CommandTag{}, nil
}

func (f *fakeBatchResults) Query() (pgx.Rows, error) { return nil, errors.New("not implemented") }
func (f *fakeBatchResults) QueryRow() pgx.Row        { return nil }
func (f *fakeBatchResults) Close() error             { return nil }

type fakeRows struct {
	rows []domain.Snapshot
	idx  int
	err  error
}

func (f *fakeRows) Close()                                       {}
func (f *fakeRows) Err() error                                   { return f.err }
func (f *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (f *fakeRows) Next() bool {
	if f.idx >= len(f.rows) {
		return false
	}
	f.idx++
	return true
}

func (f *fakeRows) Scan(dest ...any) error {
	s := f.rows[f.idx-1]
	*(dest[0].(*time.Time)) = s.Timestamp
	*(dest[1].(*int)) = s.TotalNodes
	*(dest[2].(*int)) = s.TorNodes
	*(dest[3].(*int)) = s.ActiveNodes
	return nil
}

func (f *fakeRows) Values() ([]any, error) { return nil, nil }
func (f *fakeRows) RawValues() [][]byte    { return nil }
func (f *fakeRows) Conn() *pgx.Conn        { return nil }

func testSnapshots(n int) []domain.Snapshot {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.Snapshot, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Snapshot{
			Timestamp:   base.Add(time.Duration(i) * time.Hour),
			TotalNodes:  1000 + i,
			TorNodes:    100 + i,
			ActiveNodes: 900 + i,
		})
	}
	return out
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	pool := &fakePool{}
	repo := NewSnapshotRepository(pool, tracer)

	snaps := testSnapshots(5)
	if err := repo.SaveHistory(context.Background(), snaps, 10); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := repo.LoadHistory(context.Background(), 10)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded) != len(snaps) {
		t.Fatalf("expected %d snapshots, got %d", len(snaps), len(loaded))
	}
	for i := range snaps {
		if !loaded[i].Timestamp.Equal(snaps[i].Timestamp) || loaded[i].TotalNodes != snaps[i].TotalNodes {
			t.Fatalf("round trip mismatch at %d: %+v vs %+v", i, loaded[i], snaps[i])
		}
	}
}

func TestSaveHistoryPrunesBeyondCapacity(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	pool := &fakePool{}
	repo := NewSnapshotRepository(pool, tracer)

	if err := repo.SaveHistory(context.Background(), testSnapshots(6), 4); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := repo.LoadHistory(context.Background(), 10)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded) != 4 {
		t.Fatalf("expected 4 retained rows, got %d", len(loaded))
	}
	if loaded[0].TotalNodes != 1002 {
		t.Fatalf("expected the oldest rows pruned, got %+v", loaded[0])
	}
}

func TestSaveHistoryEmptyIsNoop(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	pool := &fakePool{}
	repo := NewSnapshotRepository(pool, tracer)

	if err := repo.SaveHistory(context.Background(), nil, 10); err != nil {
		t.Fatalf("empty save should be a noop: %v", err)
	}
	if pool.batches != 0 {
		t.Fatalf("expected no batch for empty history, got %d", pool.batches)
	}
}

func TestLoadHistoryQueryError(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	pool := &fakePool{queryErr: errors.New("relation does not exist")}
	repo := NewSnapshotRepository(pool, tracer)

	if _, err := repo.LoadHistory(context.Background(), 10); err == nil {
		t.Fatal("expected query error to propagate")
	}
}

func TestLoadHistoryReturnsAscendingOrder(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	pool := &fakePool{rows: testSnapshots(3)}
	repo := NewSnapshotRepository(pool, tracer)

	loaded, err := repo.LoadHistory(context.Background(), 10)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	for i := 1; i < len(loaded); i++ {
		if loaded[i].Timestamp.Before(loaded[i-1].Timestamp) {
			t.Fatalf("history must be ordered oldest first: %+v", loaded)
		}
	}
}
