// registration/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Ftotnem/HACKATHON-SERVICES/registration/service"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/api"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/logger"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/models"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/session"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/validator"
	"github.com/gorilla/mux"
)

// RegistrationAPIHandlers holds references to the services that handle business logic.
type RegistrationAPIHandlers struct {
	RegistrationService *service.RegistrationService
	TeamService         *service.TeamService
	auth                mux.MiddlewareFunc
	log                 *logger.Logger
	timeout             time.Duration
}

// NewRegistrationAPIHandlers is the constructor for the API handlers. auth
// guards every participant route.
func NewRegistrationAPIHandlers(rs *service.RegistrationService, ts *service.TeamService, auth mux.MiddlewareFunc, log *logger.Logger, timeout time.Duration) *RegistrationAPIHandlers {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RegistrationAPIHandlers{
		RegistrationService: rs,
		TeamService:         ts,
		auth:                auth,
		log:                 log,
		timeout:             timeout,
	}
}

// --- Request/Response DTOs ---

type RegistrationRequest = service.Profile

type RegistrationResponse struct {
	Outcome service.Outcome `json:"outcome"`
	Next    string          `json:"next"`
}

type CreateTeamRequest struct {
	TeamName   string `json:"team_name"`
	LeaderName string `json:"leader_name,omitempty"`
}

type JoinTeamRequest struct {
	TeamCode string `json:"team_code"`
}

type JoinTeamResponse struct {
	Team          *models.Team `json:"team"`
	AlreadyMember bool         `json:"already_member"`
}

type RosterResponse struct {
	HasTeam         bool                `json:"has_team"`
	Team            *models.Team        `json:"team,omitempty"`
	Members         []models.TeamMember `json:"members,omitempty"`
	Capacity        int                 `json:"capacity"`
	Remaining       int                 `json:"remaining"`
	HasFemaleMember bool                `json:"has_female_member"`
}

type OptionsResponse struct {
	Genders        []models.Gender      `json:"genders"`
	Departments    []models.Department  `json:"departments"`
	Batches        []models.Batch       `json:"batches"`
	YearsOfStudy   []models.YearOfStudy `json:"years_of_study"`
	TeamMaxMembers int                  `json:"team_max_members"`
}

// RegisterRoutes registers all API routes with the provided router.
func (h *RegistrationAPIHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/options", h.OptionsHandler).Methods(http.MethodGet)

	router.Handle("/registrations", h.protected(h.SubmitRegistrationHandler)).Methods(http.MethodPost, http.MethodOptions)
	router.Handle("/me/status", h.protected(h.StatusHandler)).Methods(http.MethodGet, http.MethodOptions)
	router.Handle("/teams", h.protected(h.CreateTeamHandler)).Methods(http.MethodPost, http.MethodOptions)
	router.Handle("/teams/join", h.protected(h.JoinTeamHandler)).Methods(http.MethodPost, http.MethodOptions)
	router.Handle("/me/team", h.protected(h.RosterHandler)).Methods(http.MethodGet, http.MethodOptions)
}

func (h *RegistrationAPIHandlers) protected(fn http.HandlerFunc) http.Handler {
	return h.auth(fn)
}

// --- Handler Methods ---

// OptionsHandler lists the accepted values for the registration form.
// GET /options
func (h *RegistrationAPIHandlers) OptionsHandler(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, OptionsResponse{
		Genders:        models.AllGenders(),
		Departments:    models.AllDepartments(),
		Batches:        models.AllBatches(),
		YearsOfStudy:   models.AllYearsOfStudy(),
		TeamMaxMembers: h.TeamService.MaxMembers(),
	})
}

// SubmitRegistrationHandler records the caller's registration profile.
// POST /registrations
func (h *RegistrationAPIHandlers) SubmitRegistrationHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())

	var req RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return
	}
	// The profile is always filed under the signed-in account.
	if req.Email != "" && session.NormalizeEmail(req.Email) != id.Email {
		api.WriteError(w, http.StatusForbidden, "Email must match the signed-in account")
		return
	}
	req.Email = id.Email

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	outcome, err := h.RegistrationService.Submit(ctx, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if outcome == service.OutcomeRegistered {
		status = http.StatusCreated
	}
	api.WriteJSON(w, status, RegistrationResponse{Outcome: outcome, Next: outcome.NextStep()})
}

// StatusHandler tells the client where to route the caller.
// GET /me/status
func (h *RegistrationAPIHandlers) StatusHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	st, err := h.RegistrationService.Status(ctx, id.Email)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, st)
}

// CreateTeamHandler creates a team led by the caller.
// POST /teams
func (h *RegistrationAPIHandlers) CreateTeamHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())

	var req CreateTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	team, err := h.TeamService.Create(ctx, id.Email, req.LeaderName, req.TeamName)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, team)
}

// JoinTeamHandler adds the caller to the team with the given code.
// POST /teams/join
func (h *RegistrationAPIHandlers) JoinTeamHandler(w http.ResponseWriter, r *http.Request) {
	var req JoinTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.TeamService.Join(ctx, req.TeamCode)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, JoinTeamResponse{Team: res.Team, AlreadyMember: res.AlreadyMember})
}

// RosterHandler returns the caller's team and its members.
// GET /me/team
func (h *RegistrationAPIHandlers) RosterHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	roster, err := h.TeamService.GetRoster(ctx, id.Email)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if roster == nil {
		api.WriteJSON(w, http.StatusOK, RosterResponse{HasTeam: false, Capacity: h.TeamService.MaxMembers(), Remaining: h.TeamService.MaxMembers()})
		return
	}
	api.WriteJSON(w, http.StatusOK, RosterResponse{
		HasTeam:         true,
		Team:            roster.Team,
		Members:         roster.Members,
		Capacity:        roster.Capacity,
		Remaining:       roster.Remaining(),
		HasFemaleMember: roster.HasFemaleMember,
	})
}

// writeServiceError maps service-layer errors to HTTP status codes.
func (h *RegistrationAPIHandlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *validator.ValidationError
	switch {
	case errors.As(err, &ve):
		api.WriteErrorResponse(w, http.StatusBadRequest, api.JSONErrorResponse{
			Message: ve.Error(),
			Reason:  ve.Reason,
			Fields:  ve.Fields,
		})
	case errors.Is(err, service.ErrUnauthenticated):
		api.WriteUnauthorized(w, "Sign in to continue")
	case errors.Is(err, service.ErrNotRegistered):
		api.WriteErrorResponse(w, http.StatusForbidden, api.JSONErrorResponse{
			Message: "Complete your registration first",
			Next:    service.NextRegister,
		})
	case errors.Is(err, service.ErrAlreadyTeamed):
		api.WriteErrorResponse(w, http.StatusConflict, api.JSONErrorResponse{
			Message: "You already belong to a team",
			Next:    service.NextTeamDetails,
		})
	case errors.Is(err, service.ErrTeamNotFound):
		api.WriteNotFound(w, "Invalid team code")
	case errors.Is(err, service.ErrTeamFull):
		api.WriteConflict(w, "This team is full")
	case errors.Is(err, service.ErrCreationFailed), errors.Is(err, service.ErrPersistence):
		h.log.WithContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		api.WriteError(w, http.StatusServiceUnavailable, "Something went wrong, please try again")
	default:
		h.log.WithContext(r.Context()).Error("unexpected error", "path", r.URL.Path, "error", err)
		api.WriteInternalServerError(w, "Internal server error")
	}
}
