package server

import (
	"context"
	"errors"
	"time"

	"github.com/questrun/arena/internal/arena"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict covers recoverable domain conflicts: power-up budget
	// exhausted, duplicate submission, stale event-config version.
	ErrConflict = errors.New("conflict")
	// ErrValidation marks input rejected before any state change.
	ErrValidation = errors.New("invalid input")
)

type teamSession struct {
	SessionID  string
	TeamID     string
	TeamName   string
	MemberName string
}

type staffSession struct {
	StaffID string
	Email   string
	Role    string
}

// Store is the persistence boundary. All mutating operations on quest and
// phase state are conditional updates reporting whether they took effect, so
// the state machine stays idempotent under concurrent callers.
type Store interface {
	// Ping reports whether the backing database is reachable.
	Ping(ctx context.Context) error

	// Event config: versioned single record.
	EventConfig(ctx context.Context) (arena.EventConfig, error)
	// UpdateEventConfig applies cfg if the stored version still matches
	// cfg.Version; it reports false when another writer got there first.
	UpdateEventConfig(ctx context.Context, cfg arena.EventConfig) (bool, error)

	// Phases and quests.
	ListPhases(ctx context.Context) ([]arena.Phase, error)
	PhaseByNumber(ctx context.Context, number int) (arena.Phase, error)
	StartPhase(ctx context.Context, number int, startedAt time.Time) (bool, error)
	CompletePhase(ctx context.Context, number int, completedAt time.Time) (bool, error)
	ListQuests(ctx context.Context) ([]arena.Quest, error)
	ListQuestsByPhase(ctx context.Context, phaseNumber int) ([]arena.Quest, error)
	QuestByID(ctx context.Context, id string) (arena.Quest, error)
	QuestByOrder(ctx context.Context, phaseNumber, orderIndex int) (arena.Quest, error)
	ActiveQuest(ctx context.Context, phaseNumber int) (arena.Quest, error)
	// CloseQuest and ActivateQuest are the transition guard: a conditional
	// update keyed on the expected prior status. Zero rows affected means a
	// concurrent caller already moved the quest, reported as false, not error.
	CloseQuest(ctx context.Context, id string, endedAt time.Time) (bool, error)
	ActivateQuest(ctx context.Context, id string, startedAt time.Time) (bool, error)

	// Teams and sessions.
	ListTeams(ctx context.Context) ([]arena.Team, error)
	CreateTeam(ctx context.Context, name, joinToken string) (arena.Team, error)
	TeamByJoinToken(ctx context.Context, joinToken string) (arena.Team, error)
	JoinTeam(ctx context.Context, teamID, memberName string) (sessionID string, err error)
	TeamFromSession(ctx context.Context, sessionID string) (teamSession, error)

	// Submissions.
	InsertSubmission(ctx context.Context, sub arena.Submission) error
	SubmissionFor(ctx context.Context, teamID, questID string) (arena.Submission, error)
	SubmissionByID(ctx context.Context, id string) (arena.Submission, error)
	ListSubmissions(ctx context.Context) ([]arena.Submission, error)
	EvaluateSubmission(ctx context.Context, id string, basePoints, multiplier, finalPoints float64, evaluatedBy string, evaluatedAt time.Time) (bool, error)

	// Penalty ledger (append-only) and power-up budget.
	InsertPenalty(ctx context.Context, p arena.Penalty) error
	ListPenalties(ctx context.Context) ([]arena.Penalty, error)
	InsertPowerUp(ctx context.Context, pu arena.PowerUp) error
	ListPowerUps(ctx context.Context, teamID string) ([]arena.PowerUp, error)

	// Staff auth.
	StaffByEmail(ctx context.Context, email string) (id, passwordHash, role string, err error)
	CreateStaff(ctx context.Context, email, passwordHash, role string) error
	CreateStaffSession(ctx context.Context, staffID string) (sessionID string, err error)
	DeleteStaffSession(ctx context.Context, sessionID string) error
	StaffFromSession(ctx context.Context, sessionID string) (staffSession, error)

	// ResetSystem support: wipes submissions, penalties, power-ups and team
	// sessions, reverts quests/phases to scheduled, event config to phase 0.
	ResetAll(ctx context.Context) error
}
