package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, store Store, machine *Machine, broker *Broker, spaDir string) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Quest Arena API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, store))

	// Public.
	r.Get("/api/ranking", handleRanking(store))
	r.Get("/api/teams/{joinToken}", handleTeamLookup(store))
	r.Post("/api/join", handleJoin(store))
	r.Get("/ws/ranking", handleWSRanking(logger, store, broker))

	// Team session (Bearer token).
	r.Route("/api/game", func(r chi.Router) {
		r.Get("/state", handleGameState(store))
		r.Post("/submit", handleSubmit(store, machine))
		r.Post("/powerups", handleActivatePowerUp(store))
		r.Get("/powerups", handleListPowerUps(store))
		r.Get("/events", handleEvents(store, broker))
	})

	// Staff auth.
	r.Post("/api/admin/login", handleStaffLogin(store))
	r.Post("/api/admin/logout", handleStaffLogout(store))
	r.Get("/api/admin/me", handleStaffMe(store))

	// Admin-only: progression, teams, reset.
	r.Group(func(r chi.Router) {
		r.Use(staffAuthMiddleware(store, roleAdmin))

		r.Get("/api/admin/phases", handleListPhases(store))
		r.Post("/api/admin/phases/{number}/start", handleStartPhase(machine))
		r.Post("/api/admin/quests/{questID}/start", handleStartQuest(machine))
		r.Post("/api/admin/quests/{questID}/advance", handleAdvanceQuest(machine))
		r.Get("/api/admin/teams", handleListTeams(store))
		r.Post("/api/admin/teams", handleCreateTeam(store))
		r.Post("/api/admin/reset", handleReset(store, broker))
	})

	// Admin or evaluator: penalties and evaluation.
	r.Group(func(r chi.Router) {
		r.Use(staffAuthMiddleware(store, roleAdmin, roleEvaluator))

		r.Post("/api/admin/penalties", handleAssignPenalty(store, broker))
		r.Get("/api/admin/penalties", handleListPenalties(store))
		r.Get("/api/admin/submissions", handleListSubmissions(store))
		r.Post("/api/admin/submissions/{id}/evaluate", handleEvaluateSubmission(store, machine, broker))
	})

	if spaDir != "" {
		if info, err := os.Stat(spaDir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", spaDir)
			r.NotFound(handleSPA(spaDir))
		}
	}
}
