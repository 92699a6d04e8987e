// registration/store/team_store.go
package store

import (
	"context"
	"fmt"

	"github.com/Ftotnem/HACKATHON-SERVICES/shared/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// TeamStore represents the MongoDB data store for teams.
type TeamStore struct {
	collection *mongo.Collection
}

// NewTeamStore creates a new TeamStore instance.
func NewTeamStore(collection *mongo.Collection) *TeamStore {
	return &TeamStore{collection: collection}
}

// CreateTeam inserts team. A clashing team_code fails with ErrDuplicate.
func (ts *TeamStore) CreateTeam(ctx context.Context, team *models.Team) error {
	_, err := ts.collection.InsertOne(ctx, team)
	return translate(err, fmt.Sprintf("create team %s", team.TeamCode))
}

// GetTeamByCode looks a team up by its (already normalized) code.
func (ts *TeamStore) GetTeamByCode(ctx context.Context, code string) (*models.Team, error) {
	var team models.Team
	if err := ts.collection.FindOne(ctx, bson.M{"team_code": code}).Decode(&team); err != nil {
		return nil, translate(err, fmt.Sprintf("get team by code %s", code))
	}
	return &team, nil
}

// GetTeamByID looks a team up by id.
func (ts *TeamStore) GetTeamByID(ctx context.Context, id string) (*models.Team, error) {
	var team models.Team
	if err := ts.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&team); err != nil {
		return nil, translate(err, fmt.Sprintf("get team %s", id))
	}
	return &team, nil
}

// DeleteTeam removes a team row. Only used to undo a half-finished creation.
func (ts *TeamStore) DeleteTeam(ctx context.Context, id string) error {
	res, err := ts.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete team %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete team %s: %w", id, ErrNotFound)
	}
	return nil
}

// ReserveSlot atomically increments the member counter of team id if it is
// below limit. It reports false when the team is already at capacity.
func (ts *TeamStore) ReserveSlot(ctx context.Context, id string, limit int) (bool, error) {
	filter := bson.M{"_id": id, "member_count": bson.M{"$lt": limit}}
	update := bson.M{"$inc": bson.M{"member_count": 1}}
	res, err := ts.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to reserve slot in team %s: %w", id, err)
	}
	return res.MatchedCount == 1, nil
}

// ReleaseSlot atomically gives back a slot taken by ReserveSlot.
func (ts *TeamStore) ReleaseSlot(ctx context.Context, id string) error {
	filter := bson.M{"_id": id, "member_count": bson.M{"$gt": 0}}
	update := bson.M{"$inc": bson.M{"member_count": -1}}
	res, err := ts.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to release slot in team %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("team %s not found for slot release", id)
	}
	return nil
}
