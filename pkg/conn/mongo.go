package conn

import (
	"context"
	"time"

	"github.com/yanun0323/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const defaultMongoTimeout = 10 * time.Second

// MongoOption defines connection options for MongoDB.
type MongoOption struct {
	URI      string
	Database string
	AppName  string
}

// Mongo wraps a MongoDB client bound to one database.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongo connects and pings the primary.
func NewMongo(ctx context.Context, opt MongoOption) (*Mongo, error) {
	if opt.URI == "" {
		return nil, errors.New("mongo uri is empty")
	}
	clientOpts := options.Client().
		ApplyURI(opt.URI).
		SetConnectTimeout(defaultMongoTimeout).
		SetServerSelectionTimeout(defaultMongoTimeout)
	if opt.AppName != "" {
		clientOpts.SetAppName(opt.AppName)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "ping mongo")
	}
	return &Mongo{client: client, db: client.Database(opt.Database)}, nil
}

// Database returns the configured database.
func (m *Mongo) Database() *mongo.Database {
	if m == nil {
		return nil
	}
	return m.db
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	if m == nil || m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}
