// registration/service/registration_service.go
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Ftotnem/HACKATHON-SERVICES/registration/store"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/logger"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/models"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/session"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/validator"
)

// Outcome is the result of a registration submission.
type Outcome string

const (
	OutcomeRegistered        Outcome = "registered"
	OutcomeAlreadyRegistered Outcome = "already_registered"
	OutcomeAlreadyTeamed     Outcome = "already_teamed"
)

// Next steps a client routes the participant to.
const (
	NextRegister      = "register"
	NextTeamFormation = "team-formation"
	NextTeamDetails   = "team-details"
)

// NextStep returns where the participant goes after this outcome.
func (o Outcome) NextStep() string {
	if o == OutcomeAlreadyTeamed {
		return NextTeamDetails
	}
	return NextTeamFormation
}

// Profile is the registration form as submitted. Enum fields stay plain
// strings until validated.
type Profile struct {
	Email       string `json:"email" validate:"required,email_shape"`
	FullName    string `json:"full_name" validate:"required"`
	Gender      string `json:"gender" validate:"required,enum=gender"`
	PhoneNumber string `json:"phone_number" validate:"required,phone"`
	Department  string `json:"department" validate:"required,enum=department"`
	Batch       string `json:"batch" validate:"required,enum=batch"`
	YearOfStudy string `json:"year_of_study" validate:"required,enum=year_of_study"`
}

func (p Profile) normalized() Profile {
	return Profile{
		Email:       session.NormalizeEmail(p.Email),
		FullName:    strings.TrimSpace(p.FullName),
		Gender:      strings.TrimSpace(p.Gender),
		PhoneNumber: strings.TrimSpace(p.PhoneNumber),
		Department:  strings.TrimSpace(p.Department),
		Batch:       strings.TrimSpace(p.Batch),
		YearOfStudy: strings.TrimSpace(p.YearOfStudy),
	}
}

// Status says how far a participant has progressed.
type Status struct {
	Registered bool   `json:"registered"`
	HasTeam    bool   `json:"has_team"`
	Next       string `json:"next"`
}

// RegistrationService encapsulates the business logic for registration profiles.
type RegistrationService struct {
	registrations RegistrationStore
	members       MemberStore
	publisher     Publisher
	log           *logger.Logger
	now           func() time.Time
}

// NewRegistrationService creates a new RegistrationService instance.
func NewRegistrationService(stores Stores, pub Publisher, log *logger.Logger) *RegistrationService {
	if pub == nil {
		pub = NopPublisher{}
	}
	return &RegistrationService{
		registrations: stores.Registrations,
		members:       stores.Members,
		publisher:     pub,
		log:           log,
		now:           time.Now,
	}
}

// Submit validates p and records it unless the participant is already
// registered or already on a team. Validation failures are returned as
// *validator.ValidationError before any store access.
func (rs *RegistrationService) Submit(ctx context.Context, p Profile) (Outcome, error) {
	p = p.normalized()
	if err := validator.Validate(ctx, p); err != nil {
		return "", err
	}

	_, err := rs.members.GetMembershipByEmail(ctx, p.Email)
	switch {
	case err == nil:
		return OutcomeAlreadyTeamed, nil
	case !errors.Is(err, store.ErrNotFound):
		return "", persistence("check membership", err)
	}

	_, err = rs.registrations.GetRegistration(ctx, p.Email)
	switch {
	case err == nil:
		return OutcomeAlreadyRegistered, nil
	case !errors.Is(err, store.ErrNotFound):
		return "", persistence("check registration", err)
	}

	reg := &models.Registration{
		Email:       p.Email,
		FullName:    p.FullName,
		Gender:      models.Gender(p.Gender),
		PhoneNumber: p.PhoneNumber,
		Department:  models.Department(p.Department),
		Batch:       models.Batch(p.Batch),
		YearOfStudy: models.YearOfStudy(p.YearOfStudy),
		CreatedAt:   rs.now().UTC(),
	}
	if err := rs.registrations.CreateRegistration(ctx, reg); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// Lost a race with a concurrent submission for the same email.
			return OutcomeAlreadyRegistered, nil
		}
		return "", persistence("create registration", err)
	}

	rs.log.WithContext(ctx).Info("participant registered", "email", reg.Email, "department", reg.Department)
	publish(ctx, rs.publisher, rs.log, EventRegistrationCreated, RegistrationCreatedEvent{
		Email:      reg.Email,
		FullName:   reg.FullName,
		Department: reg.Department,
		CreatedAt:  reg.CreatedAt,
	})
	return OutcomeRegistered, nil
}

// Status reports whether email is registered and whether it is on a team.
func (rs *RegistrationService) Status(ctx context.Context, email string) (Status, error) {
	email = session.NormalizeEmail(email)
	if email == "" {
		return Status{}, ErrUnauthenticated
	}

	var st Status
	_, err := rs.members.GetMembershipByEmail(ctx, email)
	switch {
	case err == nil:
		st.HasTeam = true
	case !errors.Is(err, store.ErrNotFound):
		return Status{}, persistence("check membership", err)
	}

	_, err = rs.registrations.GetRegistration(ctx, email)
	switch {
	case err == nil:
		st.Registered = true
	case !errors.Is(err, store.ErrNotFound):
		return Status{}, persistence("check registration", err)
	}

	switch {
	case st.HasTeam:
		st.Next = NextTeamDetails
	case st.Registered:
		st.Next = NextTeamFormation
	default:
		st.Next = NextRegister
	}
	return st, nil
}
