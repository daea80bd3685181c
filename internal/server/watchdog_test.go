package server

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/questrun/arena/internal/arena"
)

func newTestWatchdog(t *testing.T, store *SQLiteStore, machine *Machine) *Watchdog {
	t.Helper()
	return NewWatchdog(machine, store, slog.Default(), WatchdogOptions{
		Interval:     time.Second,
		Debounce:     3 * time.Second,
		StuckCeiling: time.Hour,
	})
}

// advanceClock pins the watchdog and machine clocks to base + offset.
func advanceClock(w *Watchdog, m *Machine, base time.Time, offset time.Duration) {
	now := base.Add(offset)
	w.now = func() time.Time { return now }
	m.now = func() time.Time { return now }
}

func TestWatchdogIdleBeforeEventStart(t *testing.T) {
	store := newTestStore(t)
	seedEvent(t, store)
	machine, _ := newTestMachine(t, store)
	w := newTestWatchdog(t, store, machine)

	if err := w.tick(context.Background()); err != nil {
		t.Fatalf("tick on idle event: %v", err)
	}
}

func TestWatchdogDebouncesExpiry(t *testing.T) {
	store := newTestStore(t)
	quests := seedEvent(t, store)
	machine, _ := newTestMachine(t, store)
	w := newTestWatchdog(t, store, machine)
	ctx := context.Background()

	mustStartPhase(t, machine, 1)
	mustStartQuest(t, machine, quests["1.1"].ID)

	active, _ := store.ActiveQuest(ctx, 1)
	base := *active.StartedAt

	// Quest expires at start+45m (30 planned + 15 late window).
	advanceClock(w, machine, base, 46*time.Minute)
	if err := w.tick(ctx); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	if q, _ := store.QuestByID(ctx, quests["1.1"].ID); q.Status != arena.QuestActive {
		t.Fatal("first expired tick must only arm the debounce, not advance")
	}

	// One second later: still inside the debounce window.
	advanceClock(w, machine, base, 46*time.Minute+time.Second)
	if err := w.tick(ctx); err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if q, _ := store.QuestByID(ctx, quests["1.1"].ID); q.Status != arena.QuestActive {
		t.Fatal("tick inside debounce window must not advance")
	}

	// Past the debounce window: advance fires.
	advanceClock(w, machine, base, 46*time.Minute+4*time.Second)
	if err := w.tick(ctx); err != nil {
		t.Fatalf("third tick: %v", err)
	}
	if q, _ := store.QuestByID(ctx, quests["1.1"].ID); q.Status != arena.QuestClosed {
		t.Errorf("quest status after debounce = %s, want closed", q.Status)
	}
	assertOneActive(t, store, 1)
}

func TestWatchdogResetsDebounceWhenExpiryClears(t *testing.T) {
	store := newTestStore(t)
	quests := seedEvent(t, store)
	machine, _ := newTestMachine(t, store)
	w := newTestWatchdog(t, store, machine)
	ctx := context.Background()

	mustStartPhase(t, machine, 1)
	mustStartQuest(t, machine, quests["1.1"].ID)

	active, _ := store.ActiveQuest(ctx, 1)
	base := *active.StartedAt

	advanceClock(w, machine, base, 46*time.Minute)
	if err := w.tick(ctx); err != nil {
		t.Fatalf("arming tick: %v", err)
	}

	// Another caller advances in the meantime.
	if _, err := machine.AdvanceQuest(ctx, quests["1.1"].ID); err != nil {
		t.Fatalf("manual advance: %v", err)
	}

	// The next tick sees a fresh, unexpired quest and must clear the tracker.
	if err := w.tick(ctx); err != nil {
		t.Fatalf("tick after manual advance: %v", err)
	}
	w.mu.Lock()
	stale := w.expiredQuest
	w.mu.Unlock()
	if stale != "" {
		t.Errorf("debounce tracker still armed for %s", stale)
	}
}

func TestWatchdogForcesStuckQuest(t *testing.T) {
	store := newTestStore(t)
	quests := seedEvent(t, store)
	machine, _ := newTestMachine(t, store)
	w := newTestWatchdog(t, store, machine)
	ctx := context.Background()

	mustStartPhase(t, machine, 1)
	mustStartQuest(t, machine, quests["1.1"].ID)

	active, _ := store.ActiveQuest(ctx, 1)
	base := *active.StartedAt

	// Far beyond the ceiling: no debounce, advance on the first tick.
	advanceClock(w, machine, base, 2*time.Hour)
	if err := w.tick(ctx); err != nil {
		t.Fatalf("stuck tick: %v", err)
	}
	if q, _ := store.QuestByID(ctx, quests["1.1"].ID); q.Status != arena.QuestClosed {
		t.Errorf("stuck quest not force-advanced: %s", q.Status)
	}
}

func TestWatchdogRepairsMissingActiveQuest(t *testing.T) {
	store := newTestStore(t)
	quests := seedEvent(t, store)
	machine, _ := newTestMachine(t, store)
	w := newTestWatchdog(t, store, machine)
	ctx := context.Background()

	mustStartPhase(t, machine, 1)
	mustStartQuest(t, machine, quests["1.1"].ID)

	// Close at the store without the machine's follow-up activation.
	if _, err := store.CloseQuest(ctx, quests["1.1"].ID, time.Now()); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := w.tick(ctx); err != nil {
		t.Fatalf("repair tick: %v", err)
	}
	active, err := store.ActiveQuest(ctx, 1)
	if err != nil {
		t.Fatalf("no active quest after repair tick: %v", err)
	}
	if active.ID != quests["1.2"].ID {
		t.Errorf("repaired to %s, want quest 1.2", active.ID)
	}
}

func TestWatchdogRunStopsOnCancel(t *testing.T) {
	store := newTestStore(t)
	seedEvent(t, store)
	machine, _ := newTestMachine(t, store)
	w := NewWatchdog(machine, store, slog.Default(), WatchdogOptions{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
