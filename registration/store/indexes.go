// registration/store/indexes.go
package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collections groups the three collections the service persists to.
type Collections struct {
	Registrations *mongo.Collection
	Teams         *mongo.Collection
	Members       *mongo.Collection
}

// EnsureIndexes creates the indexes the uniqueness rules depend on. It is
// idempotent.
func EnsureIndexes(ctx context.Context, c Collections) error {
	specs := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{c.Registrations, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email"),
		}},
		{c.Teams, mongo.IndexModel{
			Keys:    bson.D{{Key: "team_code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_team_code"),
		}},
		{c.Members, mongo.IndexModel{
			Keys:    bson.D{{Key: "team_id", Value: 1}, {Key: "member_email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_team_member"),
		}},
		{c.Members, mongo.IndexModel{
			Keys:    bson.D{{Key: "member_email", Value: 1}},
			Options: options.Index().SetName("member_email"),
		}},
	}

	for _, s := range specs {
		if _, err := s.coll.Indexes().CreateOne(ctx, s.model); err != nil {
			return fmt.Errorf("failed to create index %s on %s: %w", *s.model.Options.Name, s.coll.Name(), err)
		}
	}
	return nil
}
