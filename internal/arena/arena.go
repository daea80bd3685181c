// Package arena defines the core domain types, the deadline calculator, and
// the score fold. It has zero external dependencies; everything here is pure Go.
package arena

import "time"

type PhaseStatus string

const (
	PhaseScheduled  PhaseStatus = "scheduled"
	PhaseInProgress PhaseStatus = "in_progress"
	PhaseCompleted  PhaseStatus = "completed"
)

type QuestStatus string

const (
	QuestScheduled QuestStatus = "scheduled"
	QuestActive    QuestStatus = "active"
	QuestClosed    QuestStatus = "closed"
	QuestCompleted QuestStatus = "completed"
)

// PreparationPhase is the phase pointer value before the event starts.
const PreparationPhase = 0

// MaxPhase is the highest phase number an event may define.
const MaxPhase = 5

type Phase struct {
	Number          int
	Name            string
	Status          PhaseStatus
	StartedAt       *time.Time
	CompletedAt     *time.Time
	DurationMinutes int
}

type Quest struct {
	ID                     string
	PhaseNumber            int
	OrderIndex             int
	Name                   string
	Status                 QuestStatus
	StartedAt              *time.Time
	EndedAt                *time.Time
	PlannedDeadlineMinutes int
	LateWindowMinutes      int
	AllowLateSubmissions   bool
	MaxPoints              int
}

type Team struct {
	ID        string
	Name      string
	JoinToken string
	CreatedAt time.Time
}

type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionEvaluated SubmissionStatus = "evaluated"
)

type Submission struct {
	ID          string
	TeamID      string
	QuestID     string
	Content     string
	Status      SubmissionStatus
	Late        bool
	SubmittedAt time.Time
	BasePoints  *float64
	Multiplier  *float64
	FinalPoints *float64
	EvaluatedBy string
	EvaluatedAt *time.Time
}

type PenaltyType string

const (
	PenaltyPlagio         PenaltyType = "plagio"
	PenaltyDesorganizacao PenaltyType = "desorganizacao"
	PenaltyDesrespeito    PenaltyType = "desrespeito"
	PenaltyAusencia       PenaltyType = "ausencia"
	PenaltyAtraso         PenaltyType = "atraso"
)

// ValidPenaltyType reports whether t is one of the known penalty types.
func ValidPenaltyType(t PenaltyType) bool {
	switch t {
	case PenaltyPlagio, PenaltyDesorganizacao, PenaltyDesrespeito, PenaltyAusencia, PenaltyAtraso:
		return true
	}
	return false
}

// Penalty deduction bounds. Evaluators cannot hand out token deductions below
// the floor; admins can, down to zero.
const (
	PenaltyMaxDeduction          = 100
	PenaltyMinDeductionAdmin     = 0
	PenaltyMinDeductionEvaluator = 5
)

type Penalty struct {
	ID              string
	TeamID          string
	Type            PenaltyType
	PointsDeduction int
	Reason          string
	PhaseApplied    *int
	AssignedByAdmin bool
	AssignedBy      string
	CreatedAt       time.Time
}

type PowerUp struct {
	ID        string
	TeamID    string
	Type      string
	PhaseUsed int
	Status    string
	UsedAt    time.Time
}

// EventConfig is the single shared event state record. Version guards every
// write: an update that does not carry the current version affects zero rows.
type EventConfig struct {
	CurrentPhase   int
	EventStarted   bool
	EventEnded     bool
	EventStartTime *time.Time
	Version        int64
}
