// shared/models/team.go
package models

import (
	"sort"
	"time"
)

// DefaultMaxTeamMembers is the hackathon-wide team size cap.
const DefaultMaxTeamMembers = 6

// Team is a hackathon team. Only MemberCount changes after creation.
type Team struct {
	ID          string    `bson:"_id" json:"id"`
	TeamCode    string    `bson:"team_code" json:"team_code"` // Uppercase, unique index
	TeamName    string    `bson:"team_name" json:"team_name"`
	LeaderEmail string    `bson:"leader_email" json:"leader_email"`
	LeaderName  string    `bson:"leader_name" json:"leader_name"`
	MemberCount int64     `bson:"member_count" json:"member_count"` // Slot counter, guarded by conditional $inc
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// TeamMember links a registered participant to a team.
type TeamMember struct {
	ID          string    `bson:"_id" json:"id"`
	TeamID      string    `bson:"team_id" json:"team_id"`
	MemberEmail string    `bson:"member_email" json:"member_email"`
	MemberName  string    `bson:"member_name" json:"member_name"`
	IsLeader    bool      `bson:"is_leader" json:"is_leader"`
	JoinedAt    time.Time `bson:"joined_at" json:"joined_at"`
}

// SortMembers orders members leader first, then by join time.
func SortMembers(members []TeamMember) {
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].IsLeader != members[j].IsLeader {
			return members[i].IsLeader
		}
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
}
