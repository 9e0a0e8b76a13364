// Package mongo provides the MongoDB Store backend, the primary production
// target. Availability mutations are single conditional document updates:
// the filter re-validates the range and the update applies the delta in one
// atomic operation, so a reservation can never race availability below zero.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"toolcrib"
	"toolcrib/holding"
	"toolcrib/hwset"
	"toolcrib/store"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store on a MongoDB database with two collections:
// one for hardware sets, one for project checkout records.
type Store struct {
	client   *mongo.Client
	sets     *mongo.Collection
	holdings *mongo.Collection
}

// Open connects to MongoDB and returns a Store bound to the named database
// and collections. The client is long-lived and pooled; the caller owns it
// for the life of the process and releases it through Close.
func Open(ctx context.Context, uri, database, setsCollection, holdingsCollection string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("toolcrib/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("toolcrib/mongo: ping: %w", err)
	}
	return New(client, database, setsCollection, holdingsCollection), nil
}

// New creates a Store on an existing client.
func New(client *mongo.Client, database, setsCollection, holdingsCollection string) *Store {
	db := client.Database(database)
	return &Store{
		client:   client,
		sets:     db.Collection(setsCollection),
		holdings: db.Collection(holdingsCollection),
	}
}

// Migrate creates the unique indexes both collections rely on: set names
// are unique, and each (projectId, hwSetName) pair has at most one record.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.sets.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "hwSetName", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("toolcrib/mongo: migrate set indexes: %w", err)
	}

	_, err = s.holdings.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "projectId", Value: 1}, {Key: "hwSetName", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("toolcrib/mongo: migrate holding indexes: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the underlying client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// Hardware set methods

func (s *Store) CreateSet(ctx context.Context, set *hwset.Set) error {
	// The unique index makes the duplicate check race-free; no prior
	// find-then-insert round trip.
	_, err := s.sets.InsertOne(ctx, set)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return toolcrib.ErrSetExists
		}
		return fmt.Errorf("toolcrib/mongo: create set: %w", err)
	}
	return nil
}

func (s *Store) GetSet(ctx context.Context, name string) (*hwset.Set, error) {
	var set hwset.Set
	err := s.sets.FindOne(ctx, bson.M{"hwSetName": name}).Decode(&set)
	if err != nil {
		if isNoDocuments(err) {
			return nil, toolcrib.ErrSetNotFound
		}
		return nil, fmt.Errorf("toolcrib/mongo: get set: %w", err)
	}
	return &set, nil
}

func (s *Store) ListSetNames(ctx context.Context) ([]string, error) {
	res := s.sets.Distinct(ctx, "hwSetName", bson.D{})
	var names []string
	if err := res.Decode(&names); err != nil {
		return nil, fmt.Errorf("toolcrib/mongo: list set names: %w", err)
	}
	return names, nil
}

func (s *Store) AdjustAvailability(ctx context.Context, name string, delta int) error {
	// Single conditional update: matches only while the adjusted value
	// stays within [0, capacity].
	next := bson.M{"$add": bson.A{"$availability", delta}}
	filter := bson.M{
		"hwSetName": name,
		"$expr": bson.M{"$and": bson.A{
			bson.M{"$gte": bson.A{next, 0}},
			bson.M{"$lte": bson.A{next, "$capacity"}},
		}},
	}

	res, err := s.sets.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"availability": delta}})
	if err != nil {
		return fmt.Errorf("toolcrib/mongo: adjust availability: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetSet(ctx, name); err != nil {
			return err
		}
		return toolcrib.ErrAvailabilityRange
	}
	return nil
}

func (s *Store) Reserve(ctx context.Context, name string, amount int) error {
	filter := bson.M{"hwSetName": name, "availability": bson.M{"$gte": amount}}
	res, err := s.sets.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"availability": -amount}})
	if err != nil {
		return fmt.Errorf("toolcrib/mongo: reserve: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetSet(ctx, name); err != nil {
			return err
		}
		return toolcrib.ErrInsufficientAvailability
	}
	return nil
}

// Holding methods

func (s *Store) HoldingQuantity(ctx context.Context, projectID, setName string) (int, error) {
	var rec struct {
		Quantity int `bson:"quantity"`
	}
	err := s.holdings.FindOne(ctx, holdingFilter(projectID, setName)).Decode(&rec)
	if err != nil {
		if isNoDocuments(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("toolcrib/mongo: get holding: %w", err)
	}
	return rec.Quantity, nil
}

func (s *Store) ApplyHoldingDelta(ctx context.Context, projectID, setName string, delta int) error {
	if delta > 0 {
		// Upsert keeps this a single atomic operation: an absent record
		// becomes {quantity: delta}, an existing one is incremented. Both
		// results are positive, so the quantity > 0 invariant holds.
		_, err := s.holdings.UpdateOne(ctx,
			holdingFilter(projectID, setName),
			bson.M{"$inc": bson.M{"quantity": delta}},
			options.UpdateOne().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("toolcrib/mongo: upsert holding: %w", err)
		}
		return nil
	}

	need := -delta

	// Exact check-in: delete the record rather than leaving quantity 0.
	exact := holdingFilter(projectID, setName)
	exact["quantity"] = need
	del, err := s.holdings.DeleteOne(ctx, exact)
	if err != nil {
		return fmt.Errorf("toolcrib/mongo: delete holding: %w", err)
	}
	if del.DeletedCount == 1 {
		return nil
	}

	// Partial check-in: decrement only while the result stays positive.
	partial := holdingFilter(projectID, setName)
	partial["quantity"] = bson.M{"$gt": need}
	res, err := s.holdings.UpdateOne(ctx, partial, bson.M{"$inc": bson.M{"quantity": delta}})
	if err != nil {
		return fmt.Errorf("toolcrib/mongo: update holding: %w", err)
	}
	if res.MatchedCount == 0 {
		return toolcrib.ErrHoldingRange
	}
	return nil
}

func (s *Store) ListHoldings(ctx context.Context, projectID string) ([]holding.Holding, error) {
	cur, err := s.holdings.Find(ctx, bson.M{"projectId": projectID})
	if err != nil {
		return nil, fmt.Errorf("toolcrib/mongo: list holdings: %w", err)
	}
	holdings := []holding.Holding{}
	if err := cur.All(ctx, &holdings); err != nil {
		return nil, fmt.Errorf("toolcrib/mongo: list holdings: %w", err)
	}
	return holdings, nil
}

func holdingFilter(projectID, setName string) bson.M {
	return bson.M{"projectId": projectID, "hwSetName": setName}
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
