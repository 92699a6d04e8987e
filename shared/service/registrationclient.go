// shared/service/registrationclient.go
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Ftotnem/HACKATHON-SERVICES/shared/api"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/models"
)

// Errors returned by RegistrationServiceClient. They also wrap the matching
// api sentinel and *api.HTTPError.
var (
	ErrNotRegistered = errors.New("participant is not registered")
	ErrAlreadyTeamed = errors.New("participant already belongs to a team")
	ErrTeamNotFound  = errors.New("team not found")
	ErrTeamFull      = errors.New("team is full")
)

// RegistrationServiceClient is a client for the Registration Service,
// acting on behalf of one signed-in participant.
type RegistrationServiceClient struct {
	apiClient *api.Client
}

// NewRegistrationClient creates a client for baseURL authenticated with token.
// A nil httpClient uses api.NewDefaultHTTPClient.
func NewRegistrationClient(baseURL, token string, httpClient *http.Client) *RegistrationServiceClient {
	return &RegistrationServiceClient{
		apiClient: api.NewClient(baseURL, httpClient).WithBearerToken(token),
	}
}

// --- Request/Response DTOs for Registration Service Communication ---
// These mirror the DTOs defined in registration/api/handler.go.

type RegistrationRequest struct {
	Email       string `json:"email,omitempty"`
	FullName    string `json:"full_name"`
	Gender      string `json:"gender"`
	PhoneNumber string `json:"phone_number"`
	Department  string `json:"department"`
	Batch       string `json:"batch"`
	YearOfStudy string `json:"year_of_study"`
}

type RegistrationResponse struct {
	Outcome string `json:"outcome"`
	Next    string `json:"next"`
}

type StatusResponse struct {
	Registered bool   `json:"registered"`
	HasTeam    bool   `json:"has_team"`
	Next       string `json:"next"`
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

// --- Client Methods for Registration Service API Endpoints ---

// Options fetches the accepted form values. GET /options
func (c *RegistrationServiceClient) Options(ctx context.Context) (*OptionsResponse, error) {
	resp := &OptionsResponse{}
	if err := c.apiClient.Get(ctx, "/options", resp); err != nil {
		return nil, fmt.Errorf("failed to get registration options: %w", err)
	}
	return resp, nil
}

// Submit registers the participant. Validation failures come back as an
// error wrapping api.ErrBadRequest whose *api.HTTPError carries the reason.
func (c *RegistrationServiceClient) Submit(ctx context.Context, req RegistrationRequest) (*RegistrationResponse, error) {
	resp := &RegistrationResponse{}
	if err := c.apiClient.Post(ctx, "/registrations", req, resp); err != nil {
		return nil, fmt.Errorf("failed to submit registration: %w", err)
	}
	return resp, nil
}

// Status reports where the participant should be routed. GET /me/status
func (c *RegistrationServiceClient) Status(ctx context.Context) (*StatusResponse, error) {
	resp := &StatusResponse{}
	if err := c.apiClient.Get(ctx, "/me/status", resp); err != nil {
		return nil, fmt.Errorf("failed to get participant status: %w", err)
	}
	return resp, nil
}

// CreateTeam creates a team led by the participant. POST /teams
func (c *RegistrationServiceClient) CreateTeam(ctx context.Context, teamName, leaderName string) (*models.Team, error) {
	team := &models.Team{}
	err := c.apiClient.Post(ctx, "/teams", CreateTeamRequest{TeamName: teamName, LeaderName: leaderName}, team)
	if err != nil {
		return nil, fmt.Errorf("failed to create team %q: %w", teamName, classify(err))
	}
	return team, nil
}

// JoinTeam joins the team with the given code. POST /teams/join
func (c *RegistrationServiceClient) JoinTeam(ctx context.Context, teamCode string) (*JoinTeamResponse, error) {
	resp := &JoinTeamResponse{}
	if err := c.apiClient.Post(ctx, "/teams/join", JoinTeamRequest{TeamCode: teamCode}, resp); err != nil {
		return nil, fmt.Errorf("failed to join team %s: %w", teamCode, classify(err))
	}
	return resp, nil
}

// GetRoster fetches the participant's team. GET /me/team
func (c *RegistrationServiceClient) GetRoster(ctx context.Context) (*RosterResponse, error) {
	resp := &RosterResponse{}
	if err := c.apiClient.Get(ctx, "/me/team", resp); err != nil {
		return nil, fmt.Errorf("failed to get team roster: %w", err)
	}
	return resp, nil
}

// WaitForTeam polls GetRoster until the participant has a team or ctx ends.
func (c *RegistrationServiceClient) WaitForTeam(ctx context.Context, every time.Duration) (*RosterResponse, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		roster, err := c.GetRoster(ctx)
		if err != nil {
			return nil, err
		}
		if roster.HasTeam {
			return roster, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// classify adds a domain error for the team endpoints' status codes.
func classify(err error) error {
	var httpErr *api.HTTPError
	if !errors.As(err, &httpErr) {
		return err
	}
	switch httpErr.StatusCode {
	case http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrNotRegistered, err)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrTeamNotFound, err)
	case http.StatusConflict:
		if httpErr.Next != "" {
			return fmt.Errorf("%w: %w", ErrAlreadyTeamed, err)
		}
		return fmt.Errorf("%w: %w", ErrTeamFull, err)
	}
	return err
}
