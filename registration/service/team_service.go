// registration/service/team_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Ftotnem/HACKATHON-SERVICES/registration/store"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/logger"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/models"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/session"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/validator"
	"github.com/google/uuid"
)

const (
	// codeCollisionRetries bounds how often Create regenerates a code the
	// teams collection already holds.
	codeCollisionRetries = 3
	compensationTimeout  = 5 * time.Second
)

// TeamOptions tunes TeamService behaviour.
type TeamOptions struct {
	MaxMembers int
	// EnforceSingleMembership rejects create and join for participants who
	// already belong to some team.
	EnforceSingleMembership bool
	Now                     func() time.Time
}

// JoinResult is the outcome of a successful join.
type JoinResult struct {
	Team          *models.Team `json:"team"`
	AlreadyMember bool         `json:"already_member"`
}

// Roster is the view of a participant's team.
type Roster struct {
	Team            *models.Team        `json:"team"`
	Members         []models.TeamMember `json:"members"`
	Capacity        int                 `json:"capacity"`
	HasFemaleMember bool                `json:"has_female_member"`
}

// Remaining returns the number of open spots.
func (r *Roster) Remaining() int {
	if n := r.Capacity - len(r.Members); n > 0 {
		return n
	}
	return 0
}

func (r *Roster) IsFull() bool {
	return r.Remaining() == 0
}

type createTeamInput struct {
	TeamName string `json:"team_name" validate:"required,max=100"`
}

// TeamService encapsulates the business logic for teams.
type TeamService struct {
	registrations RegistrationStore
	teams         TeamStore
	members       MemberStore
	codes         CodeGenerator
	session       session.Provider
	publisher     Publisher
	log           *logger.Logger
	opts          TeamOptions
}

// NewTeamService creates a new TeamService instance. The session provider
// identifies the caller for Join.
func NewTeamService(stores Stores, codes CodeGenerator, sp session.Provider, pub Publisher, log *logger.Logger, opts TeamOptions) *TeamService {
	if opts.MaxMembers <= 0 {
		opts.MaxMembers = models.DefaultMaxTeamMembers
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if pub == nil {
		pub = NopPublisher{}
	}
	return &TeamService{
		registrations: stores.Registrations,
		teams:         stores.Teams,
		members:       stores.Members,
		codes:         codes,
		session:       sp,
		publisher:     pub,
		log:           log,
		opts:          opts,
	}
}

// MaxMembers returns the team size cap.
func (ts *TeamService) MaxMembers() int {
	return ts.opts.MaxMembers
}

// Create makes a new team led by leaderEmail. An empty leaderName falls back
// to the leader's registered name. If the leader row cannot be written the
// team row is deleted again and a *CreationError is returned.
func (ts *TeamService) Create(ctx context.Context, leaderEmail, leaderName, teamName string) (*models.Team, error) {
	leaderEmail = session.NormalizeEmail(leaderEmail)
	if leaderEmail == "" {
		return nil, ErrUnauthenticated
	}
	in := createTeamInput{TeamName: strings.TrimSpace(teamName)}
	if err := validator.Validate(ctx, in); err != nil {
		return nil, err
	}

	reg, err := ts.registrations.GetRegistration(ctx, leaderEmail)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotRegistered
		}
		return nil, persistence("check registration", err)
	}
	if leaderName = strings.TrimSpace(leaderName); leaderName == "" {
		leaderName = reg.FullName
	}

	if ts.opts.EnforceSingleMembership {
		if err := ts.ensureTeamless(ctx, leaderEmail); err != nil {
			return nil, err
		}
	}

	now := ts.opts.Now().UTC()
	team, err := ts.insertTeam(ctx, in.TeamName, leaderEmail, leaderName, now)
	if err != nil {
		return nil, err
	}

	leader := &models.TeamMember{
		ID:          uuid.NewString(),
		TeamID:      team.ID,
		MemberEmail: leaderEmail,
		MemberName:  leaderName,
		IsLeader:    true,
		JoinedAt:    now,
	}
	if err := ts.members.AddMember(ctx, leader); err != nil {
		return nil, ts.compensateCreate(ctx, team, err)
	}

	ts.log.WithContext(ctx).Audit("team created", "team_id", team.ID, "team_code", team.TeamCode, "leader", leaderEmail)
	publish(ctx, ts.publisher, ts.log, EventTeamCreated, TeamCreatedEvent{
		TeamID:      team.ID,
		TeamCode:    team.TeamCode,
		TeamName:    team.TeamName,
		LeaderEmail: team.LeaderEmail,
		CreatedAt:   team.CreatedAt,
	})
	return team, nil
}

func (ts *TeamService) insertTeam(ctx context.Context, name, leaderEmail, leaderName string, now time.Time) (*models.Team, error) {
	for attempt := 0; attempt < codeCollisionRetries; attempt++ {
		code, err := ts.codes.Generate(ctx)
		if err != nil {
			return nil, &CreationError{Cause: fmt.Errorf("generate team code: %w", err)}
		}
		team := &models.Team{
			ID:          uuid.NewString(),
			TeamCode:    code,
			TeamName:    name,
			LeaderEmail: leaderEmail,
			LeaderName:  leaderName,
			MemberCount: 1, // Leader's slot
			CreatedAt:   now,
		}
		err = ts.teams.CreateTeam(ctx, team)
		if err == nil {
			return team, nil
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return nil, &CreationError{Cause: err}
		}
		ts.log.Warn("generated team code already in use, retrying", "team_code", code)
	}
	return nil, &CreationError{Cause: fmt.Errorf("team code collided %d times", codeCollisionRetries)}
}

// compensateCreate removes a team whose leader row failed to insert. It runs
// on a context detached from the caller so a cancelled request still cleans up.
func (ts *TeamService) compensateCreate(ctx context.Context, team *models.Team, cause error) error {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	cerr := &CreationError{TeamID: team.ID, Cause: cause}
	if err := ts.teams.DeleteTeam(cctx, team.ID); err != nil {
		ts.log.Error("failed to roll back team after leader insert failed; team has no members",
			"team_id", team.ID, "team_code", team.TeamCode, "cause", cause, "error", err)
		return cerr
	}
	cerr.Compensated = true
	ts.log.Warn("rolled back team after leader insert failed", "team_id", team.ID, "cause", cause)
	return cerr
}

// ensureTeamless returns ErrAlreadyTeamed if email belongs to any team.
func (ts *TeamService) ensureTeamless(ctx context.Context, email string) error {
	_, err := ts.members.GetMembershipByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrAlreadyTeamed
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return persistence("check membership", err)
	}
}

// Join adds the signed-in participant to the team with teamCode. Codes are
// case-insensitive. Joining a team one already belongs to succeeds with
// AlreadyMember set.
func (ts *TeamService) Join(ctx context.Context, teamCode string) (*JoinResult, error) {
	code := strings.ToUpper(strings.TrimSpace(teamCode))
	if code == "" {
		return nil, ErrTeamNotFound
	}

	team, err := ts.teams.GetTeamByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, persistence("look up team", err)
	}

	count, err := ts.members.CountMembers(ctx, team.ID)
	if err != nil {
		return nil, persistence("count members", err)
	}
	if count >= int64(ts.opts.MaxMembers) {
		return nil, ErrTeamFull
	}

	id, ok := ts.session.CurrentIdentity(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	email := id.Email

	reg, err := ts.registrations.GetRegistration(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotRegistered
		}
		return nil, persistence("check registration", err)
	}

	_, err = ts.members.GetMember(ctx, team.ID, email)
	switch {
	case err == nil:
		return &JoinResult{Team: team, AlreadyMember: true}, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, persistence("check membership", err)
	}

	if ts.opts.EnforceSingleMembership {
		if err := ts.ensureTeamless(ctx, email); err != nil {
			return nil, err
		}
	}

	reserved, err := ts.teams.ReserveSlot(ctx, team.ID, ts.opts.MaxMembers)
	if err != nil {
		return nil, persistence("reserve slot", err)
	}
	if !reserved {
		return nil, ErrTeamFull
	}

	member := &models.TeamMember{
		ID:          uuid.NewString(),
		TeamID:      team.ID,
		MemberEmail: email,
		MemberName:  reg.FullName,
		IsLeader:    false,
		JoinedAt:    ts.opts.Now().UTC(),
	}
	if err := ts.members.AddMember(ctx, member); err != nil {
		ts.releaseSlot(ctx, team.ID)
		if errors.Is(err, store.ErrDuplicate) {
			// A concurrent request from the same participant got there first.
			return &JoinResult{Team: team, AlreadyMember: true}, nil
		}
		return nil, persistence("add member", err)
	}

	if n, err := ts.members.CountMembers(ctx, team.ID); err != nil {
		ts.log.Warn("failed to recount members after join", "team_id", team.ID, "error", err)
	} else {
		if n > int64(ts.opts.MaxMembers) {
			ts.log.Error("team exceeds member cap", "team_id", team.ID, "members", n, "cap", ts.opts.MaxMembers)
		}
		team.MemberCount = n
	}

	ts.log.WithContext(ctx).Info("member joined team", "team_id", team.ID, "email", email)
	publish(ctx, ts.publisher, ts.log, EventMemberJoined, MemberJoinedEvent{
		TeamID:      team.ID,
		TeamCode:    team.TeamCode,
		MemberEmail: email,
		MemberCount: team.MemberCount,
		JoinedAt:    member.JoinedAt,
	})
	return &JoinResult{Team: team}, nil
}

func (ts *TeamService) releaseSlot(ctx context.Context, teamID string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()
	if err := ts.teams.ReleaseSlot(rctx, teamID); err != nil {
		ts.log.Error("failed to release reserved slot", "team_id", teamID, "error", err)
	}
}

// GetRoster returns the team memberEmail belongs to, or nil if none.
func (ts *TeamService) GetRoster(ctx context.Context, memberEmail string) (*Roster, error) {
	email := session.NormalizeEmail(memberEmail)
	if email == "" {
		return nil, ErrUnauthenticated
	}

	membership, err := ts.members.GetMembershipByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, persistence("look up membership", err)
	}

	team, err := ts.teams.GetTeamByID(ctx, membership.TeamID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			ts.log.Warn("membership points at missing team", "email", email, "team_id", membership.TeamID)
			return nil, nil
		}
		return nil, persistence("look up team", err)
	}

	members, err := ts.members.ListMembers(ctx, team.ID)
	if err != nil {
		return nil, persistence("list members", err)
	}
	models.SortMembers(members)
	if len(members) > ts.opts.MaxMembers {
		ts.log.Error("team exceeds member cap", "team_id", team.ID, "members", len(members), "cap", ts.opts.MaxMembers)
	}

	return &Roster{
		Team:            team,
		Members:         members,
		Capacity:        ts.opts.MaxMembers,
		HasFemaleMember: ts.hasFemaleMember(ctx, members),
	}, nil
}

// hasFemaleMember is advisory; lookup failures are logged and read as false.
func (ts *TeamService) hasFemaleMember(ctx context.Context, members []models.TeamMember) bool {
	emails := make([]string, 0, len(members))
	for _, m := range members {
		emails = append(emails, m.MemberEmail)
	}
	regs, err := ts.registrations.GetRegistrations(ctx, emails)
	if err != nil {
		ts.log.Warn("failed to load member registrations for eligibility", "error", err)
		return false
	}
	for _, r := range regs {
		if r.Gender == models.GenderFemale {
			return true
		}
	}
	return false
}
