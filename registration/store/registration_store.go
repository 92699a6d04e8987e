// registration/store/registration_store.go
package store

import (
	"context"
	"fmt"

	"github.com/Ftotnem/HACKATHON-SERVICES/shared/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// RegistrationStore represents the MongoDB data store for registration profiles.
type RegistrationStore struct {
	collection *mongo.Collection
}

// NewRegistrationStore creates a new RegistrationStore instance.
func NewRegistrationStore(collection *mongo.Collection) *RegistrationStore {
	return &RegistrationStore{collection: collection}
}

// CreateRegistration inserts reg. A second insert for the same email fails
// with ErrDuplicate through the unique index.
func (rs *RegistrationStore) CreateRegistration(ctx context.Context, reg *models.Registration) error {
	_, err := rs.collection.InsertOne(ctx, reg)
	return translate(err, fmt.Sprintf("create registration %s", reg.Email))
}

// GetRegistration retrieves the registration for email.
func (rs *RegistrationStore) GetRegistration(ctx context.Context, email string) (*models.Registration, error) {
	var reg models.Registration
	err := rs.collection.FindOne(ctx, bson.M{"email": email}).Decode(&reg)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("get registration %s", email))
	}
	return &reg, nil
}

// GetRegistrations retrieves the registrations for the given emails. Emails
// with no registration are skipped.
func (rs *RegistrationStore) GetRegistrations(ctx context.Context, emails []string) ([]models.Registration, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	cursor, err := rs.collection.Find(ctx, bson.M{"email": bson.M{"$in": emails}})
	if err != nil {
		return nil, fmt.Errorf("failed to find registrations: %w", err)
	}
	defer cursor.Close(ctx)

	var regs []models.Registration
	if err = cursor.All(ctx, &regs); err != nil {
		return nil, fmt.Errorf("failed to decode registrations: %w", err)
	}
	return regs, nil
}
