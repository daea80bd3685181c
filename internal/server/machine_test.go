package server

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/questrun/arena/internal/arena"
)

func TestStartPhaseAndQuest(t *testing.T) {
	store := newTestStore(t)
	quests := seedEvent(t, store)
	machine, _ := newTestMachine(t, store)
	ctx := context.Background()

	mustStartPhase(t, machine, 1)

	cfg, err := store.EventConfig(ctx)
	if err != nil {
		t.Fatalf("event config: %v", err)
	}
	if cfg.CurrentPhase != 1 || !cfg.EventStarted || cfg.EventEnded {
		t.Errorf("config after start: %+v", cfg)
	}
	if cfg.EventStartTime == nil {
		t.Error("expected event start time to be set")
	}

	mustStartQuest(t, machine, quests["1.1"].ID)

	active, err := store.ActiveQuest(ctx, 1)
	if err != nil {
		t.Fatalf("active quest: %v", err)
	}
	if active.ID != quests["1.1"].ID {
		t.Errorf("active = %s, want quest 1.1", active.ID)
	}
	if active.StartedAt == nil {
		t.Error("active quest has no startedAt")
	}

	// Starting the same quest again is a no-op, not a failure.
	mustStartQuest(t, machine, quests["1.1"].ID)
}

func TestStartPhaseValidation(t *testing.T) {
	store := newTestStore(t)
	seedEvent(t, store)
	machine, _ := newTestMachine(t, store)

	if err := machine.StartPhase(context.Background(), 7); err == nil {
		t.Error("expected validation error for phase 7")
	}
	if err := machine.StartPhase(context.Background(), -1); err == nil {
		t.Error("expected validation error for phase -1")
	}
}

func TestStartPhaseZeroReturnsToPreparation(t *testing.T) {
	store := newTestStore(t)
	quests := seedEvent(t, store)
	machine, _ := newTestMachine(t, store)
	ctx := context.Background()

	mustStartPhase(t, machine, 1)
	mustStartQuest(t, machine, quests["1.1"].ID)
	mustStartPhase(t, machine, 0)

	cfg, err := store.EventConfig(ctx)
	if err != nil {
		t.Fatalf("event config: %v", err)
	}
	if cfg.CurrentPhase != arena.PreparationPhase || cfg.EventStarted {
		t.Errorf("config after phase 0: %+v", cfg)
	}
	if cfg.EventStartTime != nil {
		t.Error("expected event start time cleared")
	}
}

func TestAdvanceQuestWithinPhase(t *testing.T) {
	store := newTestStore(t)
	quests := seedEvent(t, store)
	machine, _ := newTestMachine(t, store)
	ctx := context.Background()

	mustStartPhase(t, machine, 1)
	mustStartQuest(t, machine, quests["1.1"].ID)

	res, err := machine.AdvanceQuest(ctx, quests["1.1"].ID)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if !res.Closed {
		t.Error("expected closed = true")
	}
	if res.NextQuestID != quests["1.2"].ID {
		t.Errorf("next = %s, want quest 1.2", res.NextQuestID)
	}
	if res.PhaseAdvanced || res.EventEnded {
		t.Errorf("unexpected phase/event transition: %+v", res)
	}

	closed, err := store.QuestByID(ctx, quests["1.1"].ID)
	if err != nil {
		t.Fatalf("reload quest: %v", err)
	}
	if closed.Status != arena.QuestClosed || closed.EndedAt == nil {
		t.Errorf("quest 1.1 after advance: status=%s endedAt=%v", closed.Status, closed.EndedAt)
	}
}

// Closing quest 3 activates the boss quest within the same phase; no phase
// advance yet.
func TestAdvanceIntoBossQuest(t *testing.T) {
	store := newTestStore(t)
	quests := seedEvent(t, store)
	machine, _ := newTestMachine(t, store)
	ctx := context.Background()

	mustStartPhase(t, machine, 1)
	mustStartQuest(t, machine, quests["1.1"].ID)
	for _, key := range []string{"1.1", "1.2"} {
		if _, err := machine.AdvanceQuest(ctx, quests[key].ID); err != nil {
			t.Fatalf("advance %s: %v", key, err)
		}
	}

	res, err := machine.AdvanceQuest(ctx, quests["1.3"].ID)
	if err != nil {
		t.Fatalf("advance 1.3: %v", err)
	}
	if res.NextQuestID != quests["1.4"].ID || res.PhaseAdvanced {
		t.Errorf("closing quest 3 should open the boss quest in-phase, got %+v", res)
	}

	cfg, _ := store.EventConfig(ctx)
	if cfg.CurrentPhase != 1 {
		t.Errorf("phase pointer moved early: %d", cfg.CurrentPhase)
	}
}

func TestAdvanceAcrossPhases(t *testing.T) {
	store := newTestStore(t)
	quests := seedEvent(t, store)
	machine, _ := newTestMachine(t, store)
	ctx := context.Background()

	mustStartPhase(t, machine, 1)
	mustStartQuest(t, machine, quests["1.1"].ID)
	for _, key := range []string{"1.1", "1.2", "1.3"} {
		if _, err := machine.AdvanceQuest(ctx, quests[key].ID); err != nil {
			t.Fatalf("advance %s: %v", key, err)
		}
	}

	// Closing the boss quest advances to phase 2 and opens its first quest.
	res, err := machine.AdvanceQuest(ctx, quests["1.4"].ID)
	if err != nil {
		t.Fatalf("advance boss: %v", err)
	}
	if !res.PhaseAdvanced || res.NextQuestID != quests["2.1"].ID {
		t.Errorf("boss close should advance phase, got %+v", res)
	}

	cfg, _ := store.EventConfig(ctx)
	if cfg.CurrentPhase != 2 {
		t.Errorf("currentPhase = %d, want 2", cfg.CurrentPhase)
	}

	phase1, _ := store.PhaseByNumber(ctx, 1)
	if phase1.Status != arena.PhaseCompleted {
		t.Errorf("phase 1 status = %s, want completed", phase1.Status)
	}
	phase2, _ := store.PhaseByNumber(ctx, 2)
	if phase2.Status != arena.PhaseInProgress {
		t.Errorf("phase 2 status = %s, want in_progress", phase2.Status)
	}
}

// Closing the last quest of the last phase ends the event and leaves no
// active quest anywhere.
func TestAdvanceLastQuestEndsEvent(t *testing.T) {
	store := newTestStore(t)
	quests := seedEvent(t, store)
	machine, _ := newTestMachine(t, store)
	ctx := context.Background()

	mustStartPhase(t, machine, 2)
	mustStartQuest(t, machine, quests["2.1"].ID)
	if _, err := machine.AdvanceQuest(ctx, quests["2.1"].ID); err != nil {
		t.Fatalf("advance 2.1: %v", err)
	}

	res, err := machine.AdvanceQuest(ctx, quests["2.2"].ID)
	if err != nil {
		t.Fatalf("advance 2.2: %v", err)
	}
	if !res.EventEnded {
		t.Errorf("expected event ended, got %+v", res)
	}

	cfg, _ := store.EventConfig(ctx)
	if !cfg.EventEnded {
		t.Error("event config not marked ended")
	}
	for phase := 1; phase <= 2; phase++ {
		if _, err := store.ActiveQuest(ctx, phase); err == nil {
			t.Errorf("phase %d still has an active quest", phase)
		}
	}
}

func TestAdvanceQuestNotFound(t *testing.T) {
	store := newTestStore(t)
	seedEvent(t, store)
	machine, _ := newTestMachine(t, store)

	if _, err := machine.AdvanceQuest(context.Background(), "nope"); err == nil {
		t.Error("expected NotFound for unknown quest")
	}
}

func TestAdvanceQuestIdempotent(t *testing.T) {
	store := newTestStore(t)
	quests := seedEvent(t, store)
	machine, _ := newTestMachine(t, store)
	ctx := context.Background()

	mustStartPhase(t, machine, 1)
	mustStartQuest(t, machine, quests["1.1"].ID)

	first, err := machine.AdvanceQuest(ctx, quests["1.1"].ID)
	if err != nil {
		t.Fatalf("first advance: %v", err)
	}
	second, err := machine.AdvanceQuest(ctx, quests["1.1"].ID)
	if err != nil {
		t.Fatalf("second advance: %v", err)
	}

	if !first.Closed || second.Closed {
		t.Errorf("exactly one call should close: first=%+v second=%+v", first, second)
	}

	// The second call must not reopen 1.1 nor double-activate 1.2.
	q1, _ := store.QuestByID(ctx, quests["1.1"].ID)
	if q1.Status != arena.QuestClosed {
		t.Errorf("quest 1.1 reopened: %s", q1.Status)
	}
	assertOneActive(t, store, 1)
}

// Two concurrent AdvanceQuest calls produce exactly one activation.
func TestAdvanceQuestConcurrent(t *testing.T) {
	store := newTestStore(t)
	quests := seedEvent(t, store)
	machine, broker := newTestMachine(t, store)
	ctx := context.Background()

	mustStartPhase(t, machine, 1)
	mustStartQuest(t, machine, quests["1.1"].ID)

	events := broker.Subscribe(TopicEvent)
	defer broker.Unsubscribe(TopicEvent, events)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]AdvanceResult, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := machine.AdvanceQuest(ctx, quests["1.1"].ID)
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
				return
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	closedCount := 0
	for _, res := range results {
		if res.Closed {
			closedCount++
		}
	}
	if closedCount != 1 {
		t.Errorf("closed by %d callers, want exactly 1", closedCount)
	}

	activations := 0
	for len(events) > 0 {
		data := <-events
		if strings.Contains(string(data), "quest_activated") {
			activations++
		}
	}
	if activations != 1 {
		t.Errorf("quest_activated published %d times, want exactly 1", activations)
	}
	assertOneActive(t, store, 1)
}

func TestRepairActiveQuest(t *testing.T) {
	store := newTestStore(t)
	quests := seedEvent(t, store)
	machine, _ := newTestMachine(t, store)
	ctx := context.Background()

	mustStartPhase(t, machine, 1)
	mustStartQuest(t, machine, quests["1.1"].ID)

	// Simulate a crash between close and activate: close directly at the
	// store, skipping the machine's follow-up.
	if _, err := store.CloseQuest(ctx, quests["1.1"].ID, machine.now()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := store.ActiveQuest(ctx, 1); err == nil {
		t.Fatal("setup failed: quest still active")
	}

	if err := machine.RepairActiveQuest(ctx); err != nil {
		t.Fatalf("repair: %v", err)
	}

	active, err := store.ActiveQuest(ctx, 1)
	if err != nil {
		t.Fatalf("no active quest after repair: %v", err)
	}
	if active.ID != quests["1.2"].ID {
		t.Errorf("repaired to %s, want quest 1.2", active.ID)
	}
}

func TestRepairStalledPhaseAdvance(t *testing.T) {
	store := newTestStore(t)
	quests := seedEvent(t, store)
	machine, _ := newTestMachine(t, store)
	ctx := context.Background()

	mustStartPhase(t, machine, 1)
	mustStartQuest(t, machine, quests["1.1"].ID)

	// Close every quest in phase 1 at the store, leaving the pointer stuck.
	for _, key := range []string{"1.1", "1.2", "1.3", "1.4"} {
		q := quests[key]
		store.ActivateQuest(ctx, q.ID, machine.now())
		store.CloseQuest(ctx, q.ID, machine.now())
	}

	if err := machine.RepairActiveQuest(ctx); err != nil {
		t.Fatalf("repair: %v", err)
	}

	cfg, _ := store.EventConfig(ctx)
	if cfg.CurrentPhase != 2 {
		t.Errorf("currentPhase = %d, want 2 after repair", cfg.CurrentPhase)
	}
	assertOneActive(t, store, 2)
}

// assertOneActive checks the core invariant: 0 or 1 active quests per phase,
// and here exactly 1.
func assertOneActive(t *testing.T, store *SQLiteStore, phase int) {
	t.Helper()
	quests, err := store.ListQuestsByPhase(context.Background(), phase)
	if err != nil {
		t.Fatalf("list quests: %v", err)
	}
	active := 0
	for _, q := range quests {
		if q.Status == arena.QuestActive {
			active++
		}
	}
	if active != 1 {
		t.Errorf("phase %d has %d active quests, want 1", phase, active)
	}
}
