package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/seantiz/montecarlo/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func makeTestCheckpoint(group, name string) *model.Checkpoint {
	cp := &model.Checkpoint{
		Group:              group,
		Name:               name,
		RunID:              model.NewID(),
		CurrentCycleNumber: 1500,
		NMeasures:          1000,
		Moves: []model.MoveStats{
			{Name: "flip", Weight: 0.75, Accepted: 420, Rejected: 80, State: []byte{1, 2, 3}},
			{Name: "swap", Weight: 0.25, Accepted: 10, Rejected: 90, Collected: true, GlobalAccepted: 40, GlobalRejected: 360},
		},
		Measures: []model.MeasureStats{
			{Name: "energy", Count: 1000, ElapsedSeconds: 0.125, State: []byte(`{"sum":-1.5}`)},
			{Name: "magnetization", Count: 1000},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	cp.SetSign(complex(0.6, -0.8))
	return cp
}

func TestSaveAndGetCheckpoint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	cp := makeTestCheckpoint("sim", "latest")

	if err := s.SaveCheckpoint(ctx, cp); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}

	got, err := s.GetCheckpoint(ctx, "sim", "latest")
	if err != nil {
		t.Fatalf("GetCheckpoint: %v", err)
	}

	if got.RunID != cp.RunID {
		t.Errorf("RunID = %q, want %q", got.RunID, cp.RunID)
	}
	if got.CurrentCycleNumber != cp.CurrentCycleNumber {
		t.Errorf("CurrentCycleNumber = %d, want %d", got.CurrentCycleNumber, cp.CurrentCycleNumber)
	}
	if got.NMeasures != cp.NMeasures {
		t.Errorf("NMeasures = %d, want %d", got.NMeasures, cp.NMeasures)
	}
	if got.Sign() != cp.Sign() {
		t.Errorf("Sign = %v, want %v", got.Sign(), cp.Sign())
	}
	if !got.CreatedAt.Equal(cp.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, cp.CreatedAt)
	}

	if len(got.Moves) != len(cp.Moves) {
		t.Fatalf("got %d moves, want %d", len(got.Moves), len(cp.Moves))
	}
	for i, m := range got.Moves {
		want := cp.Moves[i]
		if m.Name != want.Name || m.Weight != want.Weight ||
			m.Accepted != want.Accepted || m.Rejected != want.Rejected ||
			m.Collected != want.Collected ||
			m.GlobalAccepted != want.GlobalAccepted || m.GlobalRejected != want.GlobalRejected {
			t.Errorf("move[%d] = %+v, want %+v", i, m, want)
		}
		if !bytes.Equal(m.State, want.State) {
			t.Errorf("move[%d].State = %v, want %v", i, m.State, want.State)
		}
	}

	if len(got.Measures) != len(cp.Measures) {
		t.Fatalf("got %d measures, want %d", len(got.Measures), len(cp.Measures))
	}
	for i, m := range got.Measures {
		want := cp.Measures[i]
		if m.Name != want.Name || m.Count != want.Count || m.ElapsedSeconds != want.ElapsedSeconds {
			t.Errorf("measure[%d] = %+v, want %+v", i, m, want)
		}
		if !bytes.Equal(m.State, want.State) {
			t.Errorf("measure[%d].State = %q, want %q", i, m.State, want.State)
		}
	}
}

func TestGetCheckpointNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetCheckpoint(context.Background(), "sim", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveCheckpointReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := makeTestCheckpoint("sim", "latest")
	if err := s.SaveCheckpoint(ctx, first); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}

	second := makeTestCheckpoint("sim", "latest")
	second.CurrentCycleNumber = 3000
	second.Moves = second.Moves[:1]
	second.Measures = nil
	if err := s.SaveCheckpoint(ctx, second); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}

	got, err := s.GetCheckpoint(ctx, "sim", "latest")
	if err != nil {
		t.Fatalf("GetCheckpoint: %v", err)
	}
	if got.RunID != second.RunID {
		t.Errorf("RunID = %q, want %q", got.RunID, second.RunID)
	}
	if got.CurrentCycleNumber != 3000 {
		t.Errorf("CurrentCycleNumber = %d, want 3000", got.CurrentCycleNumber)
	}
	if len(got.Moves) != 1 {
		t.Errorf("got %d moves, want 1", len(got.Moves))
	}
	if len(got.Measures) != 0 {
		t.Errorf("got %d measures, want 0", len(got.Measures))
	}
}

func TestListCheckpoints(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, key := range [][2]string{{"a", "one"}, {"a", "two"}, {"b", "one"}} {
		cp := makeTestCheckpoint(key[0], key[1])
		cp.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := s.SaveCheckpoint(ctx, cp); err != nil {
			t.Fatalf("SaveCheckpoint: %v", err)
		}
	}

	tests := []struct {
		group string
		want  []string
	}{
		{"", []string{"b/one", "a/two", "a/one"}},
		{"a", []string{"a/two", "a/one"}},
		{"b", []string{"b/one"}},
		{"c", nil},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("group=%q", tt.group), func(t *testing.T) {
			list, err := s.ListCheckpoints(ctx, tt.group)
			if err != nil {
				t.Fatalf("ListCheckpoints: %v", err)
			}
			var got []string
			for _, cp := range list {
				got = append(got, cp.Group+"/"+cp.Name)
				if cp.Moves != nil || cp.Measures != nil {
					t.Errorf("%s/%s: list should not load rows", cp.Group, cp.Name)
				}
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeleteCheckpoint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveCheckpoint(ctx, makeTestCheckpoint("sim", "latest")); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}
	if err := s.DeleteCheckpoint(ctx, "sim", "latest"); err != nil {
		t.Fatalf("DeleteCheckpoint: %v", err)
	}
	if _, err := s.GetCheckpoint(ctx, "sim", "latest"); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete err = %v, want ErrNotFound", err)
	}
	if err := s.DeleteCheckpoint(ctx, "sim", "latest"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}

	var rows int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM checkpoint_moves").Scan(&rows); err != nil {
		t.Fatalf("count moves: %v", err)
	}
	if rows != 0 {
		t.Errorf("%d move rows left after delete", rows)
	}
}

func TestCheckpointPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoints.db")
	ctx := context.Background()

	s1, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	cp := makeTestCheckpoint("sim", "latest")
	if err := s1.SaveCheckpoint(ctx, cp); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	got, err := s2.GetCheckpoint(ctx, "sim", "latest")
	if err != nil {
		t.Fatalf("GetCheckpoint: %v", err)
	}
	if got.NMeasures != cp.NMeasures {
		t.Errorf("NMeasures = %d, want %d", got.NMeasures, cp.NMeasures)
	}
}

func TestSaveCheckpointCancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.SaveCheckpoint(ctx, makeTestCheckpoint("sim", "latest")); err == nil {
		t.Fatal("expected error with cancelled context")
	}
	if _, err := s.GetCheckpoint(context.Background(), "sim", "latest"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestConcurrentSaveCheckpointFileDB(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "checkpoints.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	const writers, saves = 16, 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range saves {
				cp := makeTestCheckpoint("sim", fmt.Sprintf("rank-%d", w))
				cp.CurrentCycleNumber = uint64(i)
				if err := s.SaveCheckpoint(ctx, cp); err != nil {
					errs <- fmt.Errorf("writer %d save %d: %w", w, i, err)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	list, err := s.ListCheckpoints(ctx, "sim")
	if err != nil {
		t.Fatalf("ListCheckpoints: %v", err)
	}
	if len(list) != writers {
		t.Fatalf("got %d checkpoints, want %d", len(list), writers)
	}
	for _, cp := range list {
		if cp.CurrentCycleNumber != saves-1 {
			t.Errorf("%s: CurrentCycleNumber = %d, want %d", cp.Name, cp.CurrentCycleNumber, saves-1)
		}
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"mc.db", "mc.db?" + connPragmas},
		{"file:mc.db?mode=rwc", "file:mc.db?mode=rwc&" + connPragmas},
	}
	for _, tt := range tests {
		if got := dsn(tt.path); got != tt.want {
			t.Errorf("dsn(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
