package server

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/questrun/arena/internal/arena"
	"github.com/questrun/arena/internal/database"
	"github.com/questrun/arena/internal/migrations"
)

// newTestStore opens a file-backed SQLite database in a temp dir so that
// concurrent connections observe the same data.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, filepath.Join(t.TempDir(), "arena.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return NewSQLiteStore(db)
}

// seedEvent inserts two phases: phase 1 with three ordinary quests plus a
// boss quest, phase 2 with two quests. Returns quests keyed "p.o" (phase.order).
func seedEvent(t *testing.T, store *SQLiteStore) map[string]arena.Quest {
	t.Helper()
	ctx := context.Background()

	quests := make(map[string]arena.Quest)
	layout := map[int]int{1: 4, 2: 2}
	for phase := 1; phase <= 2; phase++ {
		if err := store.insertPhase(ctx, phase, "Phase", 180); err != nil {
			t.Fatalf("insert phase %d: %v", phase, err)
		}
		for order := 1; order <= layout[phase]; order++ {
			q := arena.Quest{
				ID:                     newID(),
				PhaseNumber:            phase,
				OrderIndex:             order,
				Name:                   "Quest",
				Status:                 arena.QuestScheduled,
				PlannedDeadlineMinutes: 30,
				LateWindowMinutes:      15,
				AllowLateSubmissions:   true,
				MaxPoints:              100,
			}
			if err := store.insertQuest(ctx, q); err != nil {
				t.Fatalf("insert quest %d.%d: %v", phase, order, err)
			}
			quests[questKey(phase, order)] = q
		}
	}
	return quests
}

func questKey(phase, order int) string {
	return fmt.Sprintf("%d.%d", phase, order)
}

func newTestMachine(t *testing.T, store *SQLiteStore) (*Machine, *Broker) {
	t.Helper()
	broker := NewBroker()
	return NewMachine(store, broker, slog.Default()), broker
}

// testRouter wires the full route table against a real store.
func testRouter(t *testing.T, store *SQLiteStore) (*chi.Mux, *Machine, *Broker) {
	t.Helper()
	machine, broker := newTestMachine(t, store)

	r := chi.NewRouter()
	addRoutes(r, slog.Default(), store, machine, broker, "")
	return r, machine, broker
}

func mustStartPhase(t *testing.T, m *Machine, number int) {
	t.Helper()
	if err := m.StartPhase(context.Background(), number); err != nil {
		t.Fatalf("start phase %d: %v", number, err)
	}
}

func mustStartQuest(t *testing.T, m *Machine, questID string) {
	t.Helper()
	if _, err := m.StartQuest(context.Background(), questID); err != nil {
		t.Fatalf("start quest %s: %v", questID, err)
	}
}
