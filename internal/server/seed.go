package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/questrun/arena/internal/arena"
)

// Bcrypt hash of "arena-admin". Demo credentials only; replace before a real event.
const demoPasswordHash = "$2a$10$luWWUxgVOMVlXX04Ywshcus95cM8CASVTiCbDUmoImMA958TpHa9G"

// SeedDemo creates staff accounts, phases, quests, and teams if the database
// is empty. Idempotent: does nothing once teams exist.
func SeedDemo(ctx context.Context, logger *slog.Logger, store *SQLiteStore) error {
	teams, err := store.ListTeams(ctx)
	if err != nil {
		return err
	}
	if len(teams) > 0 {
		return nil
	}

	if err := store.CreateStaff(ctx, "admin@questrun.dev", demoPasswordHash, roleAdmin); err != nil {
		return err
	}
	if err := store.CreateStaff(ctx, "evaluator@questrun.dev", demoPasswordHash, roleEvaluator); err != nil {
		return err
	}

	for _, name := range []string{"Os Vikings", "Time Fenix", "Os Curiosos"} {
		if _, err := store.CreateTeam(ctx, name, generateJoinToken()); err != nil {
			return err
		}
	}

	phases := []struct {
		number   int
		name     string
		duration int
	}{
		{1, "Abertura", 180},
		{2, "Maratona", 240},
	}
	for _, p := range phases {
		if err := store.insertPhase(ctx, p.number, p.name, p.duration); err != nil {
			return err
		}
		// Three ordinary quests plus a boss quest per phase.
		for i := 1; i <= 4; i++ {
			q := arena.Quest{
				ID:                     newID(),
				PhaseNumber:            p.number,
				OrderIndex:             i,
				Name:                   fmt.Sprintf("Quest %d.%d", p.number, i),
				Status:                 arena.QuestScheduled,
				PlannedDeadlineMinutes: 30,
				LateWindowMinutes:      15,
				AllowLateSubmissions:   true,
				MaxPoints:              100,
			}
			if i == 4 {
				q.Name = fmt.Sprintf("Boss %d", p.number)
				q.PlannedDeadlineMinutes = 60
				q.AllowLateSubmissions = false
				q.MaxPoints = 200
			}
			if err := store.insertQuest(ctx, q); err != nil {
				return err
			}
		}
	}

	logger.Info("demo event seeded", "phases", len(phases))
	return nil
}

func (s *SQLiteStore) insertPhase(ctx context.Context, number int, name string, durationMinutes int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO phases (number, name, status, duration_minutes)
		VALUES (?, ?, 'scheduled', ?)
	`, number, name, durationMinutes)
	return err
}

func (s *SQLiteStore) insertQuest(ctx context.Context, q arena.Quest) error {
	var startedAt, endedAt sql.NullString
	if q.StartedAt != nil {
		startedAt = sql.NullString{String: arena.FormatUTC(*q.StartedAt), Valid: true}
	}
	if q.EndedAt != nil {
		endedAt = sql.NullString{String: arena.FormatUTC(*q.EndedAt), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quests (id, phase_number, order_index, name, status, started_at, ended_at,
			planned_deadline_minutes, late_window_minutes, allow_late, max_points)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, q.ID, q.PhaseNumber, q.OrderIndex, q.Name, q.Status, startedAt, endedAt,
		q.PlannedDeadlineMinutes, q.LateWindowMinutes, boolInt(q.AllowLateSubmissions), q.MaxPoints)
	return err
}
