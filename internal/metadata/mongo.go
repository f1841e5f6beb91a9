package metadata

import (
	"context"

	"github.com/yanun0323/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"tickerflow/internal/model"
)

const (
	exchangeCollection = "exchange"
	marketCollection   = "market"
)

// MongoStore reads exchanges and markets from MongoDB.
type MongoStore struct {
	exchanges *mongo.Collection
	markets   *mongo.Collection
}

// NewMongoStore binds the store to db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		exchanges: db.Collection(exchangeCollection),
		markets:   db.Collection(marketCollection),
	}
}

func (s *MongoStore) ActiveExchanges(ctx context.Context) ([]model.ExchangeSnapshot, error) {
	var (
		exchanges []ExchangeDoc
		markets   []MarketDoc
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return findActive(egCtx, s.exchanges, &exchanges)
	})
	eg.Go(func() error {
		return findActive(egCtx, s.markets, &markets)
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return Reduce(exchanges, markets), nil
}

func findActive(ctx context.Context, coll *mongo.Collection, out any) error {
	cursor, err := coll.Find(ctx, bson.M{"isActive": true})
	if err != nil {
		return errors.Wrap(err, "find active").With("collection", coll.Name())
	}
	if err := cursor.All(ctx, out); err != nil {
		return errors.Wrap(err, "decode active").With("collection", coll.Name())
	}
	return nil
}
