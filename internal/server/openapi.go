package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Quest Arena API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for timed multi-team quest events.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/ranking
	getRanking, _ := r.NewOperationContext(http.MethodGet, "/api/ranking")
	getRanking.SetSummary("Leaderboard")
	getRanking.SetDescription("Recomputes the ranking from submissions, multipliers, and penalties.")
	getRanking.AddRespStructure([]RankingRow{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getRanking)

	// GET /api/teams/{joinToken}
	getTeam, _ := r.NewOperationContext(http.MethodGet, "/api/teams/{joinToken}")
	getTeam.SetSummary("Look up team")
	getTeam.SetDescription("Look up a team by its join token before joining.")
	getTeam.AddReqStructure(struct {
		JoinToken string `path:"joinToken"`
	}{})
	getTeam.AddRespStructure(TeamLookupResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getTeam)

	// POST /api/join
	postJoin, _ := r.NewOperationContext(http.MethodPost, "/api/join")
	postJoin.SetSummary("Join a team")
	postJoin.SetDescription("Join a team using the join token. Returns a session token.")
	postJoin.AddReqStructure(JoinRequest{})
	postJoin.AddRespStructure(JoinResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postJoin)

	// GET /api/game/state
	getState, _ := r.NewOperationContext(http.MethodGet, "/api/game/state")
	getState.SetSummary("Get event state")
	getState.SetDescription("Returns the event pointer, active quest with deadlines, and the team's submission. Requires Bearer token.")
	getState.AddRespStructure(GameStateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getState.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getState)

	// POST /api/game/submit
	postSubmit, _ := r.NewOperationContext(http.MethodPost, "/api/game/submit")
	postSubmit.SetSummary("Submit for the active quest")
	postSubmit.SetDescription("Submit the team's answer for the active quest. One submission per quest; late windows apply. Requires Bearer token.")
	postSubmit.AddReqStructure(SubmitRequest{})
	postSubmit.AddRespStructure(SubmitResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postSubmit.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postSubmit.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postSubmit)

	// POST /api/game/powerups
	postPowerUp, _ := r.NewOperationContext(http.MethodPost, "/api/game/powerups")
	postPowerUp.SetSummary("Activate a power-up")
	postPowerUp.SetDescription("Uses the team's one power-up for the current phase. Requires Bearer token.")
	postPowerUp.AddReqStructure(PowerUpRequest{})
	postPowerUp.AddRespStructure(PowerUpItem{}, openapi.WithHTTPStatus(http.StatusCreated))
	postPowerUp.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postPowerUp)

	// GET /api/game/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/game/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream of progression events. Pass token as query parameter.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /ws/ranking
	getWSRanking, _ := r.NewOperationContext(http.MethodGet, "/ws/ranking")
	getWSRanking.SetSummary("WebSocket leaderboard")
	getWSRanking.SetDescription("Upgrades to a WebSocket that pushes ranking snapshots as scores change.")
	getWSRanking.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWSRanking)

	// POST /api/admin/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/admin/login")
	postLogin.SetSummary("Staff login")
	postLogin.SetDescription("Authenticate with email and password. Sets staff_session cookie.")
	postLogin.AddReqStructure(StaffLoginRequest{})
	postLogin.AddRespStructure(StaffMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLogin)

	// GET /api/admin/phases
	listPhases, _ := r.NewOperationContext(http.MethodGet, "/api/admin/phases")
	listPhases.SetSummary("List phases with quests")
	listPhases.AddRespStructure([]PhaseItem{}, openapi.WithHTTPStatus(http.StatusOK))
	listPhases.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listPhases)

	// POST /api/admin/phases/{number}/start
	startPhase, _ := r.NewOperationContext(http.MethodPost, "/api/admin/phases/{number}/start")
	startPhase.SetSummary("Start phase")
	startPhase.SetDescription("Moves the shared phase pointer. Phase 0 returns the event to preparation.")
	startPhase.AddReqStructure(struct {
		Number int `path:"number"`
	}{})
	startPhase.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	startPhase.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	startPhase.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(startPhase)

	// POST /api/admin/quests/{questID}/start
	startQuest, _ := r.NewOperationContext(http.MethodPost, "/api/admin/quests/{questID}/start")
	startQuest.SetSummary("Start quest")
	startQuest.AddReqStructure(struct {
		QuestID string `path:"questID"`
	}{})
	startQuest.AddRespStructure(QuestItem{}, openapi.WithHTTPStatus(http.StatusOK))
	startQuest.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(startQuest)

	// POST /api/admin/quests/{questID}/advance
	advanceQuest, _ := r.NewOperationContext(http.MethodPost, "/api/admin/quests/{questID}/advance")
	advanceQuest.SetSummary("Advance quest")
	advanceQuest.SetDescription("Closes the quest and activates the next quest or phase. Idempotent under concurrent calls.")
	advanceQuest.AddReqStructure(struct {
		QuestID string `path:"questID"`
	}{})
	advanceQuest.AddRespStructure(AdvanceResult{}, openapi.WithHTTPStatus(http.StatusOK))
	advanceQuest.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(advanceQuest)

	// POST /api/admin/penalties
	postPenalty, _ := r.NewOperationContext(http.MethodPost, "/api/admin/penalties")
	postPenalty.SetSummary("Assign penalty")
	postPenalty.SetDescription("Appends a point deduction to the ledger. Evaluators have a 5-point floor.")
	postPenalty.AddReqStructure(PenaltyRequest{})
	postPenalty.AddRespStructure(PenaltyItem{}, openapi.WithHTTPStatus(http.StatusCreated))
	postPenalty.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postPenalty)

	// POST /api/admin/submissions/{id}/evaluate
	postEvaluate, _ := r.NewOperationContext(http.MethodPost, "/api/admin/submissions/{id}/evaluate")
	postEvaluate.SetSummary("Evaluate submission")
	postEvaluate.SetDescription("Writes base points and multiplier; final points are clamped to the quest maximum.")
	postEvaluate.AddReqStructure(struct {
		ID string `path:"id"`
	}{})
	postEvaluate.AddReqStructure(EvaluateRequest{})
	postEvaluate.AddRespStructure(SubmissionItem{}, openapi.WithHTTPStatus(http.StatusOK))
	postEvaluate.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postEvaluate)

	// POST /api/admin/reset
	postReset, _ := r.NewOperationContext(http.MethodPost, "/api/admin/reset")
	postReset.SetSummary("Reset system")
	postReset.SetDescription("Deletes all submissions, penalties, and power-ups; returns the event to phase 0. Requires a confirmation phrase.")
	postReset.AddReqStructure(ResetRequest{})
	postReset.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	postReset.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postReset)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.Marshal(spec)

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}
}
