// registration/service/ports.go
package service

import (
	"context"
	"time"

	"github.com/Ftotnem/HACKATHON-SERVICES/shared/logger"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/models"
)

type RegistrationStore interface {
	CreateRegistration(ctx context.Context, reg *models.Registration) error
	GetRegistration(ctx context.Context, email string) (*models.Registration, error)
	GetRegistrations(ctx context.Context, emails []string) ([]models.Registration, error)
}

type TeamStore interface {
	CreateTeam(ctx context.Context, team *models.Team) error
	GetTeamByCode(ctx context.Context, code string) (*models.Team, error)
	GetTeamByID(ctx context.Context, id string) (*models.Team, error)
	DeleteTeam(ctx context.Context, id string) error
	ReserveSlot(ctx context.Context, id string, limit int) (bool, error)
	ReleaseSlot(ctx context.Context, id string) error
}

type MemberStore interface {
	AddMember(ctx context.Context, member *models.TeamMember) error
	GetMembershipByEmail(ctx context.Context, email string) (*models.TeamMember, error)
	GetMember(ctx context.Context, teamID, email string) (*models.TeamMember, error)
	ListMembers(ctx context.Context, teamID string) ([]models.TeamMember, error)
	CountMembers(ctx context.Context, teamID string) (int64, error)
}

// Stores bundles the persistence ports both services depend on.
type Stores struct {
	Registrations RegistrationStore
	Teams         TeamStore
	Members       MemberStore
}

// CodeGenerator hands out unused team codes.
type CodeGenerator interface {
	Generate(ctx context.Context) (string, error)
}

// Publisher emits domain events. Failures never fail the operation.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }

// Routing keys
const (
	EventRegistrationCreated = "registration.created"
	EventTeamCreated         = "team.created"
	EventMemberJoined        = "team.member_joined"
)

type RegistrationCreatedEvent struct {
	Email      string            `json:"email"`
	FullName   string            `json:"full_name"`
	Department models.Department `json:"department"`
	CreatedAt  time.Time         `json:"created_at"`
}

type TeamCreatedEvent struct {
	TeamID      string    `json:"team_id"`
	TeamCode    string    `json:"team_code"`
	TeamName    string    `json:"team_name"`
	LeaderEmail string    `json:"leader_email"`
	CreatedAt   time.Time `json:"created_at"`
}

type MemberJoinedEvent struct {
	TeamID      string    `json:"team_id"`
	TeamCode    string    `json:"team_code"`
	MemberEmail string    `json:"member_email"`
	MemberCount int64     `json:"member_count"`
	JoinedAt    time.Time `json:"joined_at"`
}

const publishTimeout = 3 * time.Second

// publish sends an event after the write it describes has committed, so it
// is detached from the request's cancellation.
func publish(ctx context.Context, pub Publisher, log *logger.Logger, key string, payload interface{}) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := pub.Publish(pctx, key, payload); err != nil {
		log.Warn("failed to publish event", "routing_key", key, "error", err)
	}
}
