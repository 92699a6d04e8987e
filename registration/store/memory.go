// registration/store/memory.go
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/Ftotnem/HACKATHON-SERVICES/shared/models"
)

// MemoryStore keeps registrations, teams and memberships in process memory.
// It enforces the same uniqueness rules as the Mongo indexes and backs
// STORE_BACKEND=memory as well as the service tests.
type MemoryStore struct {
	mu            sync.Mutex
	registrations map[string]models.Registration // by email
	teams         map[string]models.Team         // by id
	codes         map[string]string              // team code -> team id
	members       []models.TeamMember
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		registrations: make(map[string]models.Registration),
		teams:         make(map[string]models.Team),
		codes:         make(map[string]string),
	}
}

func (m *MemoryStore) CreateRegistration(_ context.Context, reg *models.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.registrations[reg.Email]; ok {
		return fmt.Errorf("create registration %s: %w", reg.Email, ErrDuplicate)
	}
	m.registrations[reg.Email] = *reg
	return nil
}

func (m *MemoryStore) GetRegistration(_ context.Context, email string) (*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.registrations[email]
	if !ok {
		return nil, fmt.Errorf("get registration %s: %w", email, ErrNotFound)
	}
	return &reg, nil
}

func (m *MemoryStore) GetRegistrations(_ context.Context, emails []string) ([]models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var regs []models.Registration
	for _, e := range emails {
		if reg, ok := m.registrations[e]; ok {
			regs = append(regs, reg)
		}
	}
	return regs, nil
}

func (m *MemoryStore) CreateTeam(_ context.Context, team *models.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.codes[team.TeamCode]; ok {
		return fmt.Errorf("create team %s: %w", team.TeamCode, ErrDuplicate)
	}
	if _, ok := m.teams[team.ID]; ok {
		return fmt.Errorf("create team %s: %w", team.ID, ErrDuplicate)
	}
	m.teams[team.ID] = *team
	m.codes[team.TeamCode] = team.ID
	return nil
}

func (m *MemoryStore) GetTeamByCode(_ context.Context, code string) (*models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.codes[code]
	if !ok {
		return nil, fmt.Errorf("get team by code %s: %w", code, ErrNotFound)
	}
	team := m.teams[id]
	return &team, nil
}

func (m *MemoryStore) GetTeamByID(_ context.Context, id string) (*models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	team, ok := m.teams[id]
	if !ok {
		return nil, fmt.Errorf("get team %s: %w", id, ErrNotFound)
	}
	return &team, nil
}

func (m *MemoryStore) DeleteTeam(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	team, ok := m.teams[id]
	if !ok {
		return fmt.Errorf("delete team %s: %w", id, ErrNotFound)
	}
	delete(m.teams, id)
	delete(m.codes, team.TeamCode)
	return nil
}

func (m *MemoryStore) ReserveSlot(_ context.Context, id string, limit int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	team, ok := m.teams[id]
	if !ok || team.MemberCount >= int64(limit) {
		return false, nil
	}
	team.MemberCount++
	m.teams[id] = team
	return true, nil
}

func (m *MemoryStore) ReleaseSlot(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	team, ok := m.teams[id]
	if !ok || team.MemberCount == 0 {
		return fmt.Errorf("team %s not found for slot release", id)
	}
	team.MemberCount--
	m.teams[id] = team
	return nil
}

func (m *MemoryStore) AddMember(_ context.Context, member *models.TeamMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.members {
		if existing.TeamID == member.TeamID && existing.MemberEmail == member.MemberEmail {
			return fmt.Errorf("add %s to team %s: %w", member.MemberEmail, member.TeamID, ErrDuplicate)
		}
	}
	m.members = append(m.members, *member)
	return nil
}

func (m *MemoryStore) GetMembershipByEmail(_ context.Context, email string) (*models.TeamMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *models.TeamMember
	for i := range m.members {
		mem := m.members[i]
		if mem.MemberEmail != email {
			continue
		}
		if found == nil || mem.JoinedAt.Before(found.JoinedAt) {
			found = &mem
		}
	}
	if found == nil {
		return nil, fmt.Errorf("get membership of %s: %w", email, ErrNotFound)
	}
	return found, nil
}

func (m *MemoryStore) GetMember(_ context.Context, teamID, email string) (*models.TeamMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mem := range m.members {
		if mem.TeamID == teamID && mem.MemberEmail == email {
			return &mem, nil
		}
	}
	return nil, fmt.Errorf("get member %s of team %s: %w", email, teamID, ErrNotFound)
}

func (m *MemoryStore) ListMembers(_ context.Context, teamID string) ([]models.TeamMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var members []models.TeamMember
	for _, mem := range m.members {
		if mem.TeamID == teamID {
			members = append(members, mem)
		}
	}
	models.SortMembers(members)
	return members, nil
}

func (m *MemoryStore) CountMembers(_ context.Context, teamID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, mem := range m.members {
		if mem.TeamID == teamID {
			n++
		}
	}
	return n, nil
}
