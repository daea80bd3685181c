package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/questrun/arena/internal/arena"
)

// WatchdogOptions tunes the tick cadence. None of these affect correctness;
// advancement is guarded at the store no matter how many watchdogs run.
type WatchdogOptions struct {
	Interval     time.Duration
	Debounce     time.Duration
	StuckCeiling time.Duration
}

// Watchdog polls the active quest and calls the machine's guarded advance when
// the final deadline has passed. It never mutates state itself, which is what
// makes running one per replica safe.
//
// Expiry is debounced: the first tick that sees an expired quest only arms a
// window, and the advance fires once the window elapses with the quest still
// active. A quest active far beyond any legitimate duration bypasses the
// debounce and is advanced immediately.
type Watchdog struct {
	machine *Machine
	store   Store
	logger  *slog.Logger
	opts    WatchdogOptions
	now     func() time.Time

	// Single-slot expiry tracker. One watchdog watches one active quest at
	// a time, and the slot resets whenever the current quest is not expired,
	// so a quest ID recycled by a system reset cannot inherit an old window.
	mu           sync.Mutex
	expiredQuest string
	expiredAt    time.Time
}

func NewWatchdog(machine *Machine, store Store, logger *slog.Logger, opts WatchdogOptions) *Watchdog {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 3 * time.Second
	}
	if opts.StuckCeiling <= 0 {
		opts.StuckCeiling = time.Hour
	}
	return &Watchdog{
		machine: machine,
		store:   store,
		logger:  logger,
		opts:    opts,
		now:     time.Now,
	}
}

// Run ticks until ctx is cancelled. Store errors are logged and retried on
// the next tick; the loop itself is the retry mechanism.
func (w *Watchdog) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.tick(ctx); err != nil {
				w.logger.Error("watchdog tick failed", "error", err)
			}
		}
	}
}

func (w *Watchdog) tick(ctx context.Context) error {
	cfg, err := w.store.EventConfig(ctx)
	if err != nil {
		return err
	}
	if !cfg.EventStarted || cfg.EventEnded || cfg.CurrentPhase == arena.PreparationPhase {
		return nil
	}

	quest, err := w.store.ActiveQuest(ctx, cfg.CurrentPhase)
	if errors.Is(err, ErrNotFound) {
		// In-progress phase with no active quest: a previous advance died
		// between closing and activating. Repair, don't wait for a deadline.
		return w.machine.RepairActiveQuest(ctx)
	}
	if err != nil {
		return err
	}
	if quest.StartedAt == nil {
		return nil
	}

	now := w.now().UTC()
	activeFor := now.Sub(*quest.StartedAt)
	if activeFor > w.opts.StuckCeiling {
		w.logger.Error("quest stuck beyond ceiling, forcing advance",
			"quest_id", quest.ID, "active_for", activeFor.String())
		w.clearExpiry()
		_, err := w.machine.AdvanceQuest(ctx, quest.ID)
		return err
	}

	_, final := arena.Deadlines(*quest.StartedAt, quest.PlannedDeadlineMinutes,
		quest.LateWindowMinutes, quest.AllowLateSubmissions)
	if !now.After(final) {
		w.clearExpiry()
		return nil
	}

	if !w.debounceElapsed(quest.ID, now) {
		return nil
	}

	w.logger.Info("quest past final deadline, advancing",
		"quest_id", quest.ID, "final_deadline", arena.FormatUTC(final))
	w.clearExpiry()
	_, err = w.machine.AdvanceQuest(ctx, quest.ID)
	return err
}

// debounceElapsed arms the debounce window on the first tick that sees the
// quest expired and reports whether it has elapsed. Seeing a different quest
// re-arms the window from scratch.
func (w *Watchdog) debounceElapsed(questID string, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.expiredQuest != questID {
		w.expiredQuest = questID
		w.expiredAt = now
		return false
	}
	return now.Sub(w.expiredAt) >= w.opts.Debounce
}

func (w *Watchdog) clearExpiry() {
	w.mu.Lock()
	w.expiredQuest = ""
	w.mu.Unlock()
}
