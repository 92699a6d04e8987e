package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Ftotnem/HACKATHON-SERVICES/registration/codegen"
	"github.com/Ftotnem/HACKATHON-SERVICES/registration/store"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/logger"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/models"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/session"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/validator"
)

type sequenceCodes struct {
	codes []string
	err   error
}

func (s *sequenceCodes) Generate(context.Context) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	c := s.codes[0]
	s.codes = s.codes[1:]
	return c, nil
}

func TestCreateTeam(t *testing.T) {
	f := newFixture(t, TeamOptions{})
	ctx := context.Background()
	f.register(t, "lead@x.io", "Lead Person", "male")

	team, err := f.teams.Create(ctx, "Lead@X.io", "", "  Null Pointers ")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(team.TeamCode) != 6 || strings.ToUpper(team.TeamCode) != team.TeamCode {
		t.Errorf("TeamCode = %q, want 6 uppercase characters", team.TeamCode)
	}
	if team.TeamName != "Null Pointers" || team.LeaderEmail != "lead@x.io" || team.LeaderName != "Lead Person" {
		t.Errorf("unexpected team %+v", team)
	}

	members, _ := f.db.ListMembers(ctx, team.ID)
	if len(members) != 1 || !members[0].IsLeader || members[0].MemberEmail != "lead@x.io" {
		t.Fatalf("members = %+v, want only the leader", members)
	}
	if got := f.pub.Keys(); len(got) != 2 || got[1] != EventTeamCreated {
		t.Errorf("published %v, want registration then team event", got)
	}
}

func TestCreateTeamExplicitLeaderName(t *testing.T) {
	f := newFixture(t, TeamOptions{})
	f.register(t, "lead@x.io", "Lead Person", "male")

	team, err := f.teams.Create(context.Background(), "lead@x.io", "Captain", "Team")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if team.LeaderName != "Captain" {
		t.Errorf("LeaderName = %q, want Captain", team.LeaderName)
	}
}

func TestCreateTeamRejections(t *testing.T) {
	f := newFixture(t, TeamOptions{})
	ctx := context.Background()
	f.register(t, "lead@x.io", "Lead", "male")

	if _, err := f.teams.Create(ctx, "stranger@x.io", "", "Team"); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("unregistered leader error = %v, want ErrNotRegistered", err)
	}
	if _, err := f.teams.Create(ctx, "", "", "Team"); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("empty leader error = %v, want ErrUnauthenticated", err)
	}

	var ve *validator.ValidationError
	if _, err := f.teams.Create(ctx, "lead@x.io", "", "   "); !errors.As(err, &ve) || ve.Reason != validator.ReasonMissingFields {
		t.Errorf("blank team name error = %v, want missing fields", err)
	}
	if _, err := f.teams.Create(ctx, "lead@x.io", "", strings.Repeat("x", 101)); !errors.As(err, &ve) || ve.Reason != validator.ReasonTooLong {
		t.Errorf("long team name error = %v, want too long", err)
	}
}

func TestCreateTeamCompensatesFailedLeaderInsert(t *testing.T) {
	f := newFixture(t, TeamOptions{})
	ctx := context.Background()
	f.register(t, "lead@x.io", "Lead", "male")
	f.db.addMemberErr = errors.New("write concern timeout")

	_, err := f.teams.Create(ctx, "lead@x.io", "", "Doomed")
	if !errors.Is(err, ErrCreationFailed) {
		t.Fatalf("Create() error = %v, want ErrCreationFailed", err)
	}
	var ce *CreationError
	if !errors.As(err, &ce) || !ce.Compensated || ce.TeamID == "" {
		t.Fatalf("CreationError = %+v, want compensated with team id", ce)
	}
	if _, err := f.db.GetTeamByID(ctx, ce.TeamID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("team row should be rolled back, got %v", err)
	}
	if roster, _ := f.teams.GetRoster(ctx, "lead@x.io"); roster != nil {
		t.Errorf("leader should have no team, got %+v", roster)
	}
}

func TestCreateTeamCompensationFailureLeavesOrphan(t *testing.T) {
	f := newFixture(t, TeamOptions{})
	ctx := context.Background()
	f.register(t, "lead@x.io", "Lead", "male")
	f.db.addMemberErr = errors.New("write concern timeout")
	f.db.deleteTeamErr = errors.New("primary stepped down")

	_, err := f.teams.Create(ctx, "lead@x.io", "", "Orphan")
	var ce *CreationError
	if !errors.As(err, &ce) || ce.Compensated {
		t.Fatalf("error = %v, want uncompensated CreationError", err)
	}
	if _, err := f.db.GetTeamByID(ctx, ce.TeamID); err != nil {
		t.Fatalf("orphaned team should remain: %v", err)
	}
	if n, _ := f.db.CountMembers(ctx, ce.TeamID); n != 0 {
		t.Errorf("orphaned team has %d members, want 0", n)
	}
}

func TestCreateTeamCodeFailures(t *testing.T) {
	f := newFixture(t, TeamOptions{})
	ctx := context.Background()
	f.register(t, "lead@x.io", "Lead", "male")
	stores := Stores{Registrations: f.db, Teams: f.db, Members: f.db}

	failing := NewTeamService(stores, &sequenceCodes{err: codegen.ErrExhausted}, session.ContextProvider{}, nil, logger.NewNop(), TeamOptions{})
	if _, err := failing.Create(ctx, "lead@x.io", "", "Team"); !errors.Is(err, ErrCreationFailed) {
		t.Fatalf("Create() with failing generator error = %v, want ErrCreationFailed", err)
	}

	_ = f.db.CreateTeam(ctx, &models.Team{ID: "existing", TeamCode: "AAAAAA"})
	retrying := NewTeamService(stores, &sequenceCodes{codes: []string{"AAAAAA", "BBBBBB"}}, session.ContextProvider{}, nil, logger.NewNop(), TeamOptions{})
	team, err := retrying.Create(ctx, "lead@x.io", "", "Team")
	if err != nil {
		t.Fatalf("Create() with colliding code error = %v", err)
	}
	if team.TeamCode != "BBBBBB" {
		t.Errorf("TeamCode = %q, want BBBBBB after collision", team.TeamCode)
	}
}

func TestJoinTeam(t *testing.T) {
	f := newFixture(t, TeamOptions{})
	team := f.teamWithMembers(t, 1)
	f.register(t, "asha@x.io", "Asha", "female")

	res, err := f.teams.Join(asUser("asha@x.io"), strings.ToLower(team.TeamCode))
	if err != nil {
		t.Fatalf("Join() with lowercase code error = %v", err)
	}
	if res.AlreadyMember || res.Team.ID != team.ID || res.Team.MemberCount != 2 {
		t.Errorf("unexpected join result %+v", res)
	}

	m, err := f.db.GetMember(context.Background(), team.ID, "asha@x.io")
	if err != nil {
		t.Fatalf("member row missing: %v", err)
	}
	if m.IsLeader || m.MemberName != "Asha" {
		t.Errorf("unexpected member %+v", m)
	}
}

func TestJoinTeamRejections(t *testing.T) {
	f := newFixture(t, TeamOptions{})
	team := f.teamWithMembers(t, 1)

	tests := []struct {
		name string
		ctx  context.Context
		code string
		want error
	}{
		{"unknown code", asUser("lead@x.io"), "ZZZZZZ", ErrTeamNotFound},
		{"empty code", asUser("lead@x.io"), "  ", ErrTeamNotFound},
		{"signed out", context.Background(), team.TeamCode, ErrUnauthenticated},
		{"not registered", asUser("ghost@x.io"), team.TeamCode, ErrNotRegistered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.teams.Join(tt.ctx, tt.code); !errors.Is(err, tt.want) {
				t.Errorf("Join() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestJoinFullTeam(t *testing.T) {
	f := newFixture(t, TeamOptions{})
	team := f.teamWithMembers(t, 6)
	f.register(t, "late@x.io", "Late", "female")

	if _, err := f.teams.Join(asUser("late@x.io"), team.TeamCode); !errors.Is(err, ErrTeamFull) {
		t.Fatalf("Join() error = %v, want ErrTeamFull", err)
	}
	// Capacity is checked before identity.
	if _, err := f.teams.Join(context.Background(), team.TeamCode); !errors.Is(err, ErrTeamFull) {
		t.Fatalf("signed-out Join() on full team error = %v, want ErrTeamFull", err)
	}
	if n, _ := f.db.CountMembers(context.Background(), team.ID); n != 6 {
		t.Errorf("members = %d, want 6", n)
	}
}

func TestJoinAlreadyMember(t *testing.T) {
	f := newFixture(t, TeamOptions{})
	team := f.teamWithMembers(t, 2)

	res, err := f.teams.Join(asUser("a@x.io"), team.TeamCode)
	if err != nil {
		t.Fatalf("repeat Join() error = %v", err)
	}
	if !res.AlreadyMember {
		t.Error("AlreadyMember = false, want true")
	}
	if n, _ := f.db.CountMembers(context.Background(), team.ID); n != 2 {
		t.Errorf("members = %d, want 2", n)
	}
	stored, _ := f.db.GetTeamByID(context.Background(), team.ID)
	if stored.MemberCount != 2 {
		t.Errorf("slot counter = %d, want 2", stored.MemberCount)
	}
}

func TestJoinSecondTeamDefaultAllowed(t *testing.T) {
	f := newFixture(t, TeamOptions{})
	first := f.teamWithMembers(t, 2)
	f.register(t, "lead2@x.io", "Lead Two", "male")
	second, err := f.teams.Create(context.Background(), "lead2@x.io", "", "Second")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.teams.Join(asUser("a@x.io"), second.TeamCode); err != nil {
		t.Fatalf("Join() second team error = %v, want nil with default options", err)
	}
	roster, _ := f.teams.GetRoster(context.Background(), "a@x.io")
	if roster == nil || roster.Team.ID != first.ID {
		t.Errorf("roster should show the earliest team %s, got %+v", first.ID, roster)
	}
}

func TestJoinSecondTeamRejectedWhenEnforced(t *testing.T) {
	f := newFixture(t, TeamOptions{EnforceSingleMembership: true})
	f.teamWithMembers(t, 2)
	f.register(t, "lead2@x.io", "Lead Two", "male")
	second, err := f.teams.Create(context.Background(), "lead2@x.io", "", "Second")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.teams.Join(asUser("a@x.io"), second.TeamCode); !errors.Is(err, ErrAlreadyTeamed) {
		t.Fatalf("Join() error = %v, want ErrAlreadyTeamed", err)
	}
	if _, err := f.teams.Create(context.Background(), "a@x.io", "", "Third"); !errors.Is(err, ErrAlreadyTeamed) {
		t.Fatalf("Create() error = %v, want ErrAlreadyTeamed", err)
	}
}

func TestJoinRaceForLastSlot(t *testing.T) {
	f := newFixture(t, TeamOptions{})
	team := f.teamWithMembers(t, 5)
	f.register(t, "racer1@x.io", "Racer One", "male")
	f.register(t, "racer2@x.io", "Racer Two", "female")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, email := range []string{"racer1@x.io", "racer2@x.io"} {
		wg.Add(1)
		go func(i int, email string) {
			defer wg.Done()
			_, errs[i] = f.teams.Join(asUser(email), team.TeamCode)
		}(i, email)
	}
	wg.Wait()

	var ok, full int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrTeamFull):
			full++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if ok != 1 || full != 1 {
		t.Fatalf("ok = %d, full = %d; want exactly one of each", ok, full)
	}
	if n, _ := f.db.CountMembers(context.Background(), team.ID); n != 6 {
		t.Errorf("members = %d, want 6", n)
	}
}

func TestJoinReleasesSlotOnInsertFailure(t *testing.T) {
	f := newFixture(t, TeamOptions{})
	team := f.teamWithMembers(t, 1)
	f.register(t, "asha@x.io", "Asha", "female")

	f.db.mu.Lock()
	f.db.addMemberErr = errors.New("network partition")
	f.db.mu.Unlock()

	if _, err := f.teams.Join(asUser("asha@x.io"), team.TeamCode); !errors.Is(err, ErrPersistence) {
		t.Fatalf("Join() error = %v, want ErrPersistence", err)
	}
	stored, _ := f.db.GetTeamByID(context.Background(), team.ID)
	if stored.MemberCount != 1 {
		t.Errorf("slot counter = %d, want 1 after release", stored.MemberCount)
	}
}

func TestGetRoster(t *testing.T) {
	f := newFixture(t, TeamOptions{})
	ctx := context.Background()
	team := f.teamWithMembers(t, 3)

	roster, err := f.teams.GetRoster(ctx, "b@x.io")
	if err != nil {
		t.Fatalf("GetRoster() error = %v", err)
	}
	if roster.Team.ID != team.ID || roster.Capacity != 6 || roster.Remaining() != 3 || roster.IsFull() {
		t.Errorf("unexpected roster %+v", roster)
	}
	want := []string{"lead@x.io", "a@x.io", "b@x.io"}
	for i, m := range roster.Members {
		if m.MemberEmail != want[i] {
			t.Errorf("members[%d] = %s, want %s", i, m.MemberEmail, want[i])
		}
	}
	if roster.HasFemaleMember {
		t.Error("HasFemaleMember = true for an all-male team")
	}

	f.register(t, "asha@x.io", "Asha", "female")
	if _, err := f.teams.Join(asUser("asha@x.io"), team.TeamCode); err != nil {
		t.Fatal(err)
	}
	roster, _ = f.teams.GetRoster(ctx, "lead@x.io")
	if !roster.HasFemaleMember || roster.Remaining() != 2 {
		t.Errorf("after female join: HasFemaleMember = %v, Remaining = %d", roster.HasFemaleMember, roster.Remaining())
	}
}

func TestGetRosterNoTeam(t *testing.T) {
	f := newFixture(t, TeamOptions{})
	f.register(t, "solo@x.io", "Solo", "male")

	roster, err := f.teams.GetRoster(context.Background(), "solo@x.io")
	if err != nil || roster != nil {
		t.Fatalf("GetRoster() = %+v, %v; want nil, nil", roster, err)
	}
	if _, err := f.teams.GetRoster(context.Background(), " "); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("GetRoster(\"\") error = %v, want ErrUnauthenticated", err)
	}
}

func TestRosterRemainingFloorsAtZero(t *testing.T) {
	r := &Roster{Capacity: 2, Members: make([]models.TeamMember, 3)}
	if r.Remaining() != 0 || !r.IsFull() {
		t.Errorf("Remaining() = %d, IsFull() = %v", r.Remaining(), r.IsFull())
	}
}
