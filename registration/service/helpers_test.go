package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Ftotnem/HACKATHON-SERVICES/registration/codegen"
	"github.com/Ftotnem/HACKATHON-SERVICES/registration/store"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/logger"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/models"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/session"
)

// flakyStore wraps MemoryStore and injects failures per operation.
type flakyStore struct {
	*store.MemoryStore

	mu               sync.Mutex
	addMemberErr     error
	deleteTeamErr    error
	membershipErr    error
	createRegErr     error
	hideRegistration bool
}

func (f *flakyStore) AddMember(ctx context.Context, m *models.TeamMember) error {
	f.mu.Lock()
	err := f.addMemberErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MemoryStore.AddMember(ctx, m)
}

func (f *flakyStore) DeleteTeam(ctx context.Context, id string) error {
	if f.deleteTeamErr != nil {
		return f.deleteTeamErr
	}
	return f.MemoryStore.DeleteTeam(ctx, id)
}

func (f *flakyStore) GetMembershipByEmail(ctx context.Context, email string) (*models.TeamMember, error) {
	if f.membershipErr != nil {
		return nil, f.membershipErr
	}
	return f.MemoryStore.GetMembershipByEmail(ctx, email)
}

func (f *flakyStore) CreateRegistration(ctx context.Context, reg *models.Registration) error {
	if f.createRegErr != nil {
		return f.createRegErr
	}
	return f.MemoryStore.CreateRegistration(ctx, reg)
}

func (f *flakyStore) GetRegistration(ctx context.Context, email string) (*models.Registration, error) {
	if f.hideRegistration {
		return nil, store.ErrNotFound
	}
	return f.MemoryStore.GetRegistration(ctx, email)
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) Publish(_ context.Context, key string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

func (p *recordingPublisher) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

// stepClock returns a time one second later on every call.
func stepClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

type fixture struct {
	db    *flakyStore
	pub   *recordingPublisher
	regs  *RegistrationService
	teams *TeamService
}

func newFixture(t *testing.T, opts TeamOptions) *fixture {
	t.Helper()
	db := &flakyStore{MemoryStore: store.NewMemoryStore()}
	pub := &recordingPublisher{}
	stores := Stores{Registrations: db, Teams: db, Members: db}
	if opts.Now == nil {
		opts.Now = stepClock()
	}
	return &fixture{
		db:    db,
		pub:   pub,
		regs:  NewRegistrationService(stores, pub, logger.NewNop()),
		teams: NewTeamService(stores, codegen.NewGenerator(6, codegen.NewLocalReserver()), session.ContextProvider{}, pub, logger.NewNop(), opts),
	}
}

func asUser(email string) context.Context {
	return session.WithIdentity(context.Background(), session.Identity{Email: email})
}

func profile(email, name, gender string) Profile {
	return Profile{
		Email:       email,
		FullName:    name,
		Gender:      gender,
		PhoneNumber: "+91 98765 43210",
		Department:  string(models.DepartmentCSE),
		Batch:       string(models.BatchS5),
		YearOfStudy: string(models.YearThird),
	}
}

// register submits a valid profile and fails the test on anything but Registered.
func (f *fixture) register(t *testing.T, email, name, gender string) {
	t.Helper()
	out, err := f.regs.Submit(context.Background(), profile(email, name, gender))
	if err != nil || out != OutcomeRegistered {
		t.Fatalf("register %s: outcome = %q, err = %v", email, out, err)
	}
}

// teamWithMembers creates a team led by lead@x.io plus n-1 joined members.
func (f *fixture) teamWithMembers(t *testing.T, n int) *models.Team {
	t.Helper()
	f.register(t, "lead@x.io", "Lead", "male")
	team, err := f.teams.Create(context.Background(), "lead@x.io", "", "Null Pointers")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	for i := 1; i < n; i++ {
		email := string(rune('a'+i-1)) + "@x.io"
		f.register(t, email, "Member "+email, "male")
		if _, err := f.teams.Join(asUser(email), team.TeamCode); err != nil {
			t.Fatalf("join %s: %v", email, err)
		}
	}
	return team
}
