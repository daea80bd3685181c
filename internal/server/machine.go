package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/questrun/arena/internal/arena"
)

// Machine owns every write to quest status, phase status, and the event-config
// phase pointer. All moves go through the store's conditional updates, so any
// number of concurrent callers (admin requests, watchdog ticks, retries)
// collapse to the same end state as a single call.
type Machine struct {
	store  Store
	broker *Broker
	logger *slog.Logger
	now    func() time.Time
}

func NewMachine(store Store, broker *Broker, logger *slog.Logger) *Machine {
	return &Machine{
		store:  store,
		broker: broker,
		logger: logger,
		now:    time.Now,
	}
}

// AdvanceResult reports what a call to AdvanceQuest actually did.
type AdvanceResult struct {
	Closed        bool   `json:"closed"`
	NextQuestID   string `json:"nextQuestId,omitempty"`
	PhaseAdvanced bool   `json:"phaseAdvanced,omitempty"`
	EventEnded    bool   `json:"eventEnded,omitempty"`
}

// StartPhase moves the shared phase pointer. Number 0 returns the event to
// preparation and clears the start timestamp; 1..MaxPhase marks the phase in
// progress and the event started. The config write is version-guarded.
func (m *Machine) StartPhase(ctx context.Context, number int) error {
	if number < arena.PreparationPhase || number > arena.MaxPhase {
		return fmt.Errorf("%w: phase number %d out of range", ErrValidation, number)
	}

	cfg, err := m.store.EventConfig(ctx)
	if err != nil {
		return err
	}

	now := m.now().UTC()
	if number == arena.PreparationPhase {
		cfg.CurrentPhase = arena.PreparationPhase
		cfg.EventStarted = false
		cfg.EventEnded = false
		cfg.EventStartTime = nil
	} else {
		if _, err := m.store.PhaseByNumber(ctx, number); err != nil {
			return err
		}
		started, err := m.store.StartPhase(ctx, number, now)
		if err != nil {
			return err
		}
		if started {
			m.broker.Publish(TopicEvent, Event{Type: "phase_started", PhaseNumber: number})
		}
		cfg.CurrentPhase = number
		cfg.EventStarted = true
		cfg.EventEnded = false
		if cfg.EventStartTime == nil {
			cfg.EventStartTime = &now
		}
	}

	ok, err := m.store.UpdateEventConfig(ctx, cfg)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: event config changed concurrently", ErrConflict)
	}

	m.logger.Info("phase pointer moved", "phase", number)
	return nil
}

// StartQuest activates a scheduled quest. Activating a quest that is already
// active is an idempotent no-op.
func (m *Machine) StartQuest(ctx context.Context, questID string) (arena.Quest, error) {
	quest, err := m.store.QuestByID(ctx, questID)
	if err != nil {
		return arena.Quest{}, err
	}

	activated, err := m.store.ActivateQuest(ctx, questID, m.now())
	if err != nil {
		return arena.Quest{}, err
	}
	if activated {
		m.broker.Publish(TopicEvent, Event{Type: "quest_activated", QuestID: questID, PhaseNumber: quest.PhaseNumber})
		m.logger.Info("quest activated", "quest_id", questID, "phase", quest.PhaseNumber)
	}
	return m.store.QuestByID(ctx, questID)
}

// AdvanceQuest closes the given quest and opens whatever comes next: the next
// quest in the phase, the first quest of the next phase, or the end of the
// event. A quest already closed by a concurrent caller makes the whole call a
// no-op success; exactly one caller performs the follow-up activation.
func (m *Machine) AdvanceQuest(ctx context.Context, questID string) (AdvanceResult, error) {
	quest, err := m.store.QuestByID(ctx, questID)
	if err != nil {
		return AdvanceResult{}, err
	}

	closed, err := m.store.CloseQuest(ctx, questID, m.now())
	if err != nil {
		return AdvanceResult{}, err
	}
	if !closed {
		// Someone else advanced first. Strict idempotence: no further action.
		return AdvanceResult{Closed: false}, nil
	}

	res := AdvanceResult{Closed: true}
	next, err := m.store.QuestByOrder(ctx, quest.PhaseNumber, quest.OrderIndex+1)
	switch {
	case err == nil:
		if err := m.activate(ctx, next); err != nil {
			return res, err
		}
		res.NextQuestID = next.ID
		return res, nil
	case errors.Is(err, ErrNotFound):
		return m.advancePhase(ctx, quest.PhaseNumber, res)
	default:
		return res, err
	}
}

// advancePhase runs after the last quest of a phase closed: complete the
// phase, then either open the next phase's first quest or end the event.
func (m *Machine) advancePhase(ctx context.Context, phaseNumber int, res AdvanceResult) (AdvanceResult, error) {
	if _, err := m.store.CompletePhase(ctx, phaseNumber, m.now()); err != nil {
		return res, err
	}

	nextPhase := phaseNumber + 1
	if _, err := m.store.PhaseByNumber(ctx, nextPhase); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return res, err
		}
		return m.endEvent(ctx, phaseNumber, res)
	}

	if _, err := m.store.StartPhase(ctx, nextPhase, m.now()); err != nil {
		return res, err
	}
	first, err := m.store.QuestByOrder(ctx, nextPhase, 1)
	if err != nil {
		// Phase with no quests: leave it to the watchdog's repair pass.
		return res, err
	}
	if err := m.activate(ctx, first); err != nil {
		return res, err
	}

	cfg, err := m.store.EventConfig(ctx)
	if err != nil {
		return res, err
	}
	cfg.CurrentPhase = nextPhase
	if _, err := m.store.UpdateEventConfig(ctx, cfg); err != nil {
		return res, err
	}

	m.broker.Publish(TopicEvent, Event{Type: "phase_started", PhaseNumber: nextPhase})
	m.logger.Info("phase advanced", "from", phaseNumber, "to", nextPhase)

	res.NextQuestID = first.ID
	res.PhaseAdvanced = true
	return res, nil
}

func (m *Machine) endEvent(ctx context.Context, lastPhase int, res AdvanceResult) (AdvanceResult, error) {
	cfg, err := m.store.EventConfig(ctx)
	if err != nil {
		return res, err
	}
	cfg.EventEnded = true
	if _, err := m.store.UpdateEventConfig(ctx, cfg); err != nil {
		return res, err
	}

	m.broker.Publish(TopicEvent, Event{Type: "event_ended", PhaseNumber: lastPhase})
	m.logger.Info("event ended", "last_phase", lastPhase)

	res.EventEnded = true
	return res, nil
}

func (m *Machine) activate(ctx context.Context, quest arena.Quest) error {
	activated, err := m.store.ActivateQuest(ctx, quest.ID, m.now())
	if err != nil {
		return err
	}
	if activated {
		m.broker.Publish(TopicEvent, Event{Type: "quest_activated", QuestID: quest.ID, PhaseNumber: quest.PhaseNumber})
		m.logger.Info("quest activated", "quest_id", quest.ID, "phase", quest.PhaseNumber)
	}
	return nil
}

// RepairActiveQuest handles the recoverable inconsistency where a phase is in
// progress but holds no active quest (for example a crash between closing one
// quest and activating the next). It re-attempts the pending activation.
func (m *Machine) RepairActiveQuest(ctx context.Context) error {
	cfg, err := m.store.EventConfig(ctx)
	if err != nil {
		return err
	}
	if !cfg.EventStarted || cfg.EventEnded || cfg.CurrentPhase == arena.PreparationPhase {
		return nil
	}

	if _, err := m.store.ActiveQuest(ctx, cfg.CurrentPhase); err == nil || !errors.Is(err, ErrNotFound) {
		return err
	}

	quests, err := m.store.ListQuestsByPhase(ctx, cfg.CurrentPhase)
	if err != nil {
		return err
	}
	for _, q := range quests {
		if q.Status == arena.QuestScheduled {
			m.logger.Warn("repairing phase with no active quest",
				"phase", cfg.CurrentPhase, "quest_id", q.ID)
			return m.activate(ctx, q)
		}
	}

	// Every quest in the phase is closed: the pending transition is the
	// phase advance itself.
	if len(quests) > 0 {
		m.logger.Warn("repairing stalled phase advance", "phase", cfg.CurrentPhase)
		_, err = m.advancePhase(ctx, cfg.CurrentPhase, AdvanceResult{})
		return err
	}
	return nil
}
