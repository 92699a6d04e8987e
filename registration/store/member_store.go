// registration/store/member_store.go
package store

import (
	"context"
	"fmt"

	"github.com/Ftotnem/HACKATHON-SERVICES/shared/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MemberStore represents the MongoDB data store for team memberships.
type MemberStore struct {
	collection *mongo.Collection
}

// NewMemberStore creates a new MemberStore instance.
func NewMemberStore(collection *mongo.Collection) *MemberStore {
	return &MemberStore{collection: collection}
}

// AddMember inserts a membership row. The (team_id, member_email) unique
// index turns a repeated join into ErrDuplicate.
func (ms *MemberStore) AddMember(ctx context.Context, member *models.TeamMember) error {
	_, err := ms.collection.InsertOne(ctx, member)
	return translate(err, fmt.Sprintf("add %s to team %s", member.MemberEmail, member.TeamID))
}

// GetMembershipByEmail returns the earliest membership of email.
func (ms *MemberStore) GetMembershipByEmail(ctx context.Context, email string) (*models.TeamMember, error) {
	var member models.TeamMember
	opts := options.FindOne().SetSort(bson.D{{Key: "joined_at", Value: 1}})
	if err := ms.collection.FindOne(ctx, bson.M{"member_email": email}, opts).Decode(&member); err != nil {
		return nil, translate(err, fmt.Sprintf("get membership of %s", email))
	}
	return &member, nil
}

// GetMember returns the membership of email in a specific team.
func (ms *MemberStore) GetMember(ctx context.Context, teamID, email string) (*models.TeamMember, error) {
	var member models.TeamMember
	filter := bson.M{"team_id": teamID, "member_email": email}
	if err := ms.collection.FindOne(ctx, filter).Decode(&member); err != nil {
		return nil, translate(err, fmt.Sprintf("get member %s of team %s", email, teamID))
	}
	return &member, nil
}

// ListMembers returns the members of a team, leader first then by join time.
func (ms *MemberStore) ListMembers(ctx context.Context, teamID string) ([]models.TeamMember, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "is_leader", Value: -1},
		{Key: "joined_at", Value: 1},
	})
	cursor, err := ms.collection.Find(ctx, bson.M{"team_id": teamID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of team %s: %w", teamID, err)
	}
	defer cursor.Close(ctx)

	var members []models.TeamMember
	if err = cursor.All(ctx, &members); err != nil {
		return nil, fmt.Errorf("failed to decode members of team %s: %w", teamID, err)
	}
	return members, nil
}

// CountMembers returns how many membership rows a team has.
func (ms *MemberStore) CountMembers(ctx context.Context, teamID string) (int64, error) {
	n, err := ms.collection.CountDocuments(ctx, bson.M{"team_id": teamID})
	if err != nil {
		return 0, fmt.Errorf("failed to count members of team %s: %w", teamID, err)
	}
	return n, nil
}
