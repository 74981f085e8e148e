package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"chronoutil/pkg/chrono"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(Config{Path: filepath.Join(t.TempDir(), "instants.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournal_RecordGet(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	at := chrono.FromDateAndTime(2024, 3, 5, 7, 8, 9, 10)
	recorded := chrono.FromDate(2024, 3, 6)

	e, err := j.Record(ctx, "deploy", at, recorded)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if e.ID == 0 {
		t.Fatal("expected assigned id")
	}

	got, err := j.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != e {
		t.Errorf("Get = %+v, want %+v", got, e)
	}

	if _, err := j.Get(ctx, e.ID+100); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing id err = %v, want ErrNotFound", err)
	}
}

func TestJournal_LatestAndRange(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	base := chrono.FromDate(2024, 1, 1)
	for i := 0; i < 5; i++ {
		label := "a"
		if i%2 == 1 {
			label = "b"
		}
		if _, err := j.Record(ctx, label, base.Add(chrono.TimeSpan(i)*chrono.Day), base); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	latest, err := j.Latest(ctx, "a")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.At != base.Add(4*chrono.Day) {
		t.Errorf("Latest(a) = %s", latest.At)
	}
	if _, err := j.Latest(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Latest(missing) err = %v", err)
	}

	all, err := j.Range(ctx, "", base, base.Add(3*chrono.Day))
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	if len(all) != 3 || all[0].At != base || all[2].At != base.Add(2*chrono.Day) {
		t.Errorf("Range(all) = %+v", all)
	}

	onlyB, err := j.Range(ctx, "b", base, base.Add(10*chrono.Day))
	if err != nil {
		t.Fatalf("Range(b): %v", err)
	}
	if len(onlyB) != 2 {
		t.Errorf("Range(b) len = %d, want 2", len(onlyB))
	}
}

func TestJournal_RunBatches(t *testing.T) {
	reg := prometheus.NewRegistry()
	hist := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "commit_seconds"})
	reg.MustRegister(hist)

	j, err := Open(Config{Path: filepath.Join(t.TempDir(), "instants.db"), CommitDur: hist})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer j.Close()

	ch := make(chan Entry, 10)
	done := make(chan struct{})
	go func() {
		j.Run(context.Background(), ch)
		close(done)
	}()

	at := chrono.FromDate(2024, 1, 1)
	for i := 0; i < 7; i++ {
		ch <- Entry{Label: "sample", At: at.Add(chrono.TimeSpan(i) * chrono.Second), RecordedAt: at}
	}
	close(ch)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after channel close")
	}

	n, err := j.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 7 {
		t.Errorf("Count = %d, want 7", n)
	}
	if got := testutil.CollectAndCount(hist); got != 1 {
		t.Errorf("expected histogram to be collected, got %d", got)
	}
}
