package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/questrun/arena/internal/arena"
)

// SQLiteStore implements Store on a single SQLite database. The transition
// guard lives here: quest and phase moves are UPDATE ... WHERE status = ?
// checked through RowsAffected, and the power-up budget rests on a partial
// unique index, so correctness does not depend on in-process locking.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func newID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func newToken() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func scanTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := arena.ParseUTC(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// --- Event config ---

func (s *SQLiteStore) EventConfig(ctx context.Context) (arena.EventConfig, error) {
	var cfg arena.EventConfig
	var started, ended int
	var startTime sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT current_phase, event_started, event_ended, event_start_time, version
		FROM event_config WHERE id = 1
	`).Scan(&cfg.CurrentPhase, &started, &ended, &startTime, &cfg.Version)
	if err != nil {
		return cfg, err
	}
	cfg.EventStarted = started == 1
	cfg.EventEnded = ended == 1
	if cfg.EventStartTime, err = scanTime(startTime); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (s *SQLiteStore) UpdateEventConfig(ctx context.Context, cfg arena.EventConfig) (bool, error) {
	var startTime any
	if cfg.EventStartTime != nil {
		startTime = arena.FormatUTC(*cfg.EventStartTime)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE event_config
		SET current_phase = ?, event_started = ?, event_ended = ?,
		    event_start_time = ?, version = version + 1
		WHERE id = 1 AND version = ?
	`, cfg.CurrentPhase, boolInt(cfg.EventStarted), boolInt(cfg.EventEnded), startTime, cfg.Version)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// --- Phases ---

func scanPhase(row interface{ Scan(...any) error }) (arena.Phase, error) {
	var p arena.Phase
	var startedAt, completedAt sql.NullString
	err := row.Scan(&p.Number, &p.Name, &p.Status, &startedAt, &completedAt, &p.DurationMinutes)
	if err != nil {
		return p, err
	}
	if p.StartedAt, err = scanTime(startedAt); err != nil {
		return p, err
	}
	if p.CompletedAt, err = scanTime(completedAt); err != nil {
		return p, err
	}
	return p, nil
}

const phaseColumns = `number, name, status, started_at, completed_at, duration_minutes`

func (s *SQLiteStore) ListPhases(ctx context.Context) ([]arena.Phase, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+phaseColumns+` FROM phases ORDER BY number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var phases []arena.Phase
	for rows.Next() {
		p, err := scanPhase(rows)
		if err != nil {
			return nil, err
		}
		phases = append(phases, p)
	}
	return phases, rows.Err()
}

func (s *SQLiteStore) PhaseByNumber(ctx context.Context, number int) (arena.Phase, error) {
	p, err := scanPhase(s.db.QueryRowContext(ctx, `
		SELECT `+phaseColumns+` FROM phases WHERE number = ?
	`, number))
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

func (s *SQLiteStore) StartPhase(ctx context.Context, number int, startedAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE phases SET status = 'in_progress', started_at = ?
		WHERE number = ? AND status = 'scheduled'
	`, arena.FormatUTC(startedAt), number)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLiteStore) CompletePhase(ctx context.Context, number int, completedAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE phases SET status = 'completed', completed_at = ?
		WHERE number = ? AND status = 'in_progress'
	`, arena.FormatUTC(completedAt), number)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// --- Quests ---

const questColumns = `id, phase_number, order_index, name, status, started_at, ended_at,
	planned_deadline_minutes, late_window_minutes, allow_late, max_points`

func scanQuest(row interface{ Scan(...any) error }) (arena.Quest, error) {
	var q arena.Quest
	var startedAt, endedAt sql.NullString
	var allowLate int
	err := row.Scan(&q.ID, &q.PhaseNumber, &q.OrderIndex, &q.Name, &q.Status,
		&startedAt, &endedAt, &q.PlannedDeadlineMinutes, &q.LateWindowMinutes,
		&allowLate, &q.MaxPoints)
	if err != nil {
		return q, err
	}
	q.AllowLateSubmissions = allowLate == 1
	if q.StartedAt, err = scanTime(startedAt); err != nil {
		return q, err
	}
	if q.EndedAt, err = scanTime(endedAt); err != nil {
		return q, err
	}
	return q, nil
}

func (s *SQLiteStore) questQuery(ctx context.Context, where string, args ...any) (arena.Quest, error) {
	q, err := scanQuest(s.db.QueryRowContext(ctx,
		`SELECT `+questColumns+` FROM quests WHERE `+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return q, ErrNotFound
	}
	return q, err
}

func (s *SQLiteStore) QuestByID(ctx context.Context, id string) (arena.Quest, error) {
	return s.questQuery(ctx, `id = ?`, id)
}

func (s *SQLiteStore) QuestByOrder(ctx context.Context, phaseNumber, orderIndex int) (arena.Quest, error) {
	return s.questQuery(ctx, `phase_number = ? AND order_index = ?`, phaseNumber, orderIndex)
}

func (s *SQLiteStore) ActiveQuest(ctx context.Context, phaseNumber int) (arena.Quest, error) {
	return s.questQuery(ctx, `phase_number = ? AND status = 'active'`, phaseNumber)
}

func (s *SQLiteStore) listQuests(ctx context.Context, where string, args ...any) ([]arena.Quest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questColumns+` FROM quests WHERE `+where+` ORDER BY phase_number, order_index`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quests []arena.Quest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, err
		}
		quests = append(quests, q)
	}
	return quests, rows.Err()
}

func (s *SQLiteStore) ListQuests(ctx context.Context) ([]arena.Quest, error) {
	return s.listQuests(ctx, `1 = 1`)
}

func (s *SQLiteStore) ListQuestsByPhase(ctx context.Context, phaseNumber int) ([]arena.Quest, error) {
	return s.listQuests(ctx, `phase_number = ?`, phaseNumber)
}

func (s *SQLiteStore) CloseQuest(ctx context.Context, id string, endedAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE quests SET status = 'closed', ended_at = ?
		WHERE id = ? AND status = 'active'
	`, arena.FormatUTC(endedAt), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLiteStore) ActivateQuest(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE quests SET status = 'active', started_at = ?
		WHERE id = ? AND status = 'scheduled'
	`, arena.FormatUTC(startedAt), id)
	if err != nil {
		// The quests_one_active index rejects a second active quest in the
		// same phase; treat it like losing the conditional update.
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// --- Teams and sessions ---

func (s *SQLiteStore) ListTeams(ctx context.Context) ([]arena.Team, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, join_token, created_at FROM teams ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []arena.Team
	for rows.Next() {
		var t arena.Team
		var createdAt string
		if err := rows.Scan(&t.ID, &t.Name, &t.JoinToken, &createdAt); err != nil {
			return nil, err
		}
		if t.CreatedAt, err = arena.ParseUTC(createdAt); err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (s *SQLiteStore) CreateTeam(ctx context.Context, name, joinToken string) (arena.Team, error) {
	t := arena.Team{
		ID:        newID(),
		Name:      name,
		JoinToken: joinToken,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO teams (id, name, join_token, created_at) VALUES (?, ?, ?, ?)
	`, t.ID, t.Name, t.JoinToken, arena.FormatUTC(t.CreatedAt))
	if isUniqueViolation(err) {
		return arena.Team{}, ErrConflict
	}
	return t, err
}

func (s *SQLiteStore) TeamByJoinToken(ctx context.Context, joinToken string) (arena.Team, error) {
	var t arena.Team
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, join_token, created_at FROM teams WHERE join_token = ?
	`, joinToken).Scan(&t.ID, &t.Name, &t.JoinToken, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.CreatedAt, err = arena.ParseUTC(createdAt)
	return t, err
}

func (s *SQLiteStore) JoinTeam(ctx context.Context, teamID, memberName string) (string, error) {
	sessionID := newToken()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO team_sessions (id, team_id, member_name, joined_at)
		VALUES (?, ?, ?, ?)
	`, sessionID, teamID, memberName, arena.FormatUTC(time.Now()))
	return sessionID, err
}

func (s *SQLiteStore) TeamFromSession(ctx context.Context, sessionID string) (teamSession, error) {
	var sess teamSession
	err := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.team_id, t.name, s.member_name
		FROM team_sessions s
		JOIN teams t ON t.id = s.team_id
		WHERE s.id = ?
	`, sessionID).Scan(&sess.SessionID, &sess.TeamID, &sess.TeamName, &sess.MemberName)
	if errors.Is(err, sql.ErrNoRows) {
		return sess, errNoSession
	}
	return sess, err
}

// --- Submissions ---

const submissionColumns = `id, team_id, quest_id, content, status, late, submitted_at,
	base_points, multiplier, final_points, evaluated_by, evaluated_at`

func scanSubmission(row interface{ Scan(...any) error }) (arena.Submission, error) {
	var sub arena.Submission
	var late int
	var submittedAt string
	var base, mult, final sql.NullFloat64
	var evaluatedBy sql.NullString
	var evaluatedAt sql.NullString
	err := row.Scan(&sub.ID, &sub.TeamID, &sub.QuestID, &sub.Content, &sub.Status, &late,
		&submittedAt, &base, &mult, &final, &evaluatedBy, &evaluatedAt)
	if err != nil {
		return sub, err
	}
	sub.Late = late == 1
	if sub.SubmittedAt, err = arena.ParseUTC(submittedAt); err != nil {
		return sub, err
	}
	if base.Valid {
		sub.BasePoints = &base.Float64
	}
	if mult.Valid {
		sub.Multiplier = &mult.Float64
	}
	if final.Valid {
		sub.FinalPoints = &final.Float64
	}
	sub.EvaluatedBy = evaluatedBy.String
	if sub.EvaluatedAt, err = scanTime(evaluatedAt); err != nil {
		return sub, err
	}
	return sub, nil
}

func (s *SQLiteStore) InsertSubmission(ctx context.Context, sub arena.Submission) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (id, team_id, quest_id, content, status, late, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sub.ID, sub.TeamID, sub.QuestID, sub.Content, sub.Status, boolInt(sub.Late),
		arena.FormatUTC(sub.SubmittedAt))
	if isUniqueViolation(err) {
		// First submission wins; a quest never reopens once submitted.
		return ErrConflict
	}
	return err
}

func (s *SQLiteStore) submissionQuery(ctx context.Context, where string, args ...any) (arena.Submission, error) {
	sub, err := scanSubmission(s.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE `+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return sub, ErrNotFound
	}
	return sub, err
}

func (s *SQLiteStore) SubmissionFor(ctx context.Context, teamID, questID string) (arena.Submission, error) {
	return s.submissionQuery(ctx, `team_id = ? AND quest_id = ?`, teamID, questID)
}

func (s *SQLiteStore) SubmissionByID(ctx context.Context, id string) (arena.Submission, error) {
	return s.submissionQuery(ctx, `id = ?`, id)
}

func (s *SQLiteStore) ListSubmissions(ctx context.Context) ([]arena.Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+submissionColumns+` FROM submissions ORDER BY submitted_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []arena.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *SQLiteStore) EvaluateSubmission(ctx context.Context, id string, basePoints, multiplier, finalPoints float64, evaluatedBy string, evaluatedAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE submissions
		SET status = 'evaluated', base_points = ?, multiplier = ?, final_points = ?,
		    evaluated_by = ?, evaluated_at = ?
		WHERE id = ? AND status = 'pending'
	`, basePoints, multiplier, finalPoints, evaluatedBy, arena.FormatUTC(evaluatedAt), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// --- Penalties ---

func (s *SQLiteStore) InsertPenalty(ctx context.Context, p arena.Penalty) error {
	var phase any
	if p.PhaseApplied != nil {
		phase = *p.PhaseApplied
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO penalties (id, team_id, type, points_deduction, reason, phase_applied,
			assigned_by_admin, assigned_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.TeamID, p.Type, p.PointsDeduction, p.Reason, phase,
		boolInt(p.AssignedByAdmin), p.AssignedBy, arena.FormatUTC(p.CreatedAt))
	return err
}

func (s *SQLiteStore) ListPenalties(ctx context.Context) ([]arena.Penalty, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, team_id, type, points_deduction, reason, phase_applied,
			assigned_by_admin, assigned_by, created_at
		FROM penalties ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var penalties []arena.Penalty
	for rows.Next() {
		var p arena.Penalty
		var reason sql.NullString
		var phase sql.NullInt64
		var byAdmin int
		var createdAt string
		if err := rows.Scan(&p.ID, &p.TeamID, &p.Type, &p.PointsDeduction, &reason,
			&phase, &byAdmin, &p.AssignedBy, &createdAt); err != nil {
			return nil, err
		}
		p.Reason = reason.String
		if phase.Valid {
			n := int(phase.Int64)
			p.PhaseApplied = &n
		}
		p.AssignedByAdmin = byAdmin == 1
		if p.CreatedAt, err = arena.ParseUTC(createdAt); err != nil {
			return nil, err
		}
		penalties = append(penalties, p)
	}
	return penalties, rows.Err()
}

// --- Power-ups ---

func (s *SQLiteStore) InsertPowerUp(ctx context.Context, pu arena.PowerUp) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO power_ups (id, team_id, type, phase_used, status, used_at)
		VALUES (?, ?, ?, ?, 'used', ?)
	`, pu.ID, pu.TeamID, pu.Type, pu.PhaseUsed, arena.FormatUTC(pu.UsedAt))
	if isUniqueViolation(err) {
		// Budget exhausted for this team and phase.
		return ErrConflict
	}
	return err
}

func (s *SQLiteStore) ListPowerUps(ctx context.Context, teamID string) ([]arena.PowerUp, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, team_id, type, phase_used, status, used_at
		FROM power_ups WHERE team_id = ? ORDER BY used_at
	`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var powerUps []arena.PowerUp
	for rows.Next() {
		var pu arena.PowerUp
		var usedAt string
		if err := rows.Scan(&pu.ID, &pu.TeamID, &pu.Type, &pu.PhaseUsed, &pu.Status, &usedAt); err != nil {
			return nil, err
		}
		if pu.UsedAt, err = arena.ParseUTC(usedAt); err != nil {
			return nil, err
		}
		powerUps = append(powerUps, pu)
	}
	return powerUps, rows.Err()
}

// --- Staff ---

func (s *SQLiteStore) StaffByEmail(ctx context.Context, email string) (string, string, string, error) {
	var id, hash, role string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, password_hash, role FROM staff WHERE email = ?
	`, email).Scan(&id, &hash, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", "", ErrNotFound
	}
	return id, hash, role, err
}

func (s *SQLiteStore) CreateStaff(ctx context.Context, email, passwordHash, role string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO staff (id, email, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, newID(), email, passwordHash, role, arena.FormatUTC(time.Now()))
	return err
}

func (s *SQLiteStore) CreateStaffSession(ctx context.Context, staffID string) (string, error) {
	sessionID := newToken()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO staff_sessions (id, staff_id, created_at) VALUES (?, ?, ?)
	`, sessionID, staffID, arena.FormatUTC(time.Now()))
	return sessionID, err
}

func (s *SQLiteStore) DeleteStaffSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM staff_sessions WHERE id = ?`, sessionID)
	return err
}

func (s *SQLiteStore) StaffFromSession(ctx context.Context, sessionID string) (staffSession, error) {
	var sess staffSession
	err := s.db.QueryRowContext(ctx, `
		SELECT st.id, st.email, st.role
		FROM staff_sessions s
		JOIN staff st ON st.id = s.staff_id
		WHERE s.id = ?
	`, sessionID).Scan(&sess.StaffID, &sess.Email, &sess.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return staffSession{}, errNoStaffSession
	}
	return sess, err
}

// --- Reset ---

func (s *SQLiteStore) ResetAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM submissions`,
		`DELETE FROM penalties`,
		`DELETE FROM power_ups`,
		`DELETE FROM team_sessions`,
		`UPDATE quests SET status = 'scheduled', started_at = NULL, ended_at = NULL`,
		`UPDATE phases SET status = 'scheduled', started_at = NULL, completed_at = NULL`,
		`UPDATE event_config
		 SET current_phase = 0, event_started = 0, event_ended = 0,
		     event_start_time = NULL, version = version + 1
		 WHERE id = 1`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}
