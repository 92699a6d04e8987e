// shared/mongodb/client.go
package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/Ftotnem/HACKATHON-SERVICES/shared/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Client represents a wrapper around *mongo.Client for easier management.
type Client struct {
	mongoClient *mongo.Client
	database    string
	log         *logger.Logger
}

// NewClient establishes a connection to the MongoDB server and returns a new Client instance.
func NewClient(ctx context.Context, connStr, databaseName string, log *logger.Logger) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(connStr))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping the primary to ensure connection is established
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		if disconnectErr := client.Disconnect(context.Background()); disconnectErr != nil {
			log.Warn("failed to disconnect MongoDB client after ping failure", "error", disconnectErr)
		}
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Info("connected to MongoDB", "database", databaseName)
	return &Client{
		mongoClient: client,
		database:    databaseName,
		log:         log,
	}, nil
}

// Collection returns a mongo.Collection for the specified collection name.
func (mc *Client) Collection(collectionName string) *mongo.Collection {
	return mc.mongoClient.Database(mc.database).Collection(collectionName)
}

// Disconnect closes the MongoDB client connection.
func (mc *Client) Disconnect(ctx context.Context) error {
	mc.log.Info("disconnecting from MongoDB")
	return mc.mongoClient.Disconnect(ctx)
}
