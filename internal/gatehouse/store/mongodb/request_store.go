package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/store"
	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
)

// maxUpdateAttempts bounds how often UpdateIf re-reads after losing a
// version race before giving up with store.ErrConflict.
const maxUpdateAttempts = 5

type RequestStore struct {
	collection *mongo.Collection
}

// NewRequestStore binds to the access_requests collection and ensures its
// indexes exist.
func NewRequestStore(ctx context.Context, db *mongo.Database) (*RequestStore, error) {
	collection := db.Collection("access_requests")

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "residentId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "groupFinalExit", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return nil, unavailable("create request indexes", err)
	}

	return &RequestStore{collection: collection}, nil
}

func (s *RequestStore) Create(ctx context.Context, req types.AccessRequest) (types.AccessRequest, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	req.Version = 1

	if _, err := s.collection.InsertOne(ctx, req); err != nil {
		return types.AccessRequest{}, unavailable("insert request", err)
	}
	return req, nil
}

func (s *RequestStore) GetByID(ctx context.Context, id string) (types.AccessRequest, error) {
	var req types.AccessRequest
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return types.AccessRequest{}, store.ErrNotFound
	}
	if err != nil {
		return types.AccessRequest{}, unavailable("find request", err)
	}
	return req, nil
}

// UpdateIf replaces the document only while its version still matches the
// one fn saw.  A lost race re-reads and re-runs fn, so the loser sees the
// winner's state and fails its own precondition.
func (s *RequestStore) UpdateIf(ctx context.Context, id string, fn store.MutateFn) (types.AccessRequest, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		cur, err := s.GetByID(ctx, id)
		if err != nil {
			return types.AccessRequest{}, err
		}

		next := cur.Clone()
		if err := fn(&next); err != nil {
			return types.AccessRequest{}, err
		}
		next.ID = cur.ID
		next.Version = cur.Version + 1

		res, err := s.collection.ReplaceOne(ctx,
			bson.M{"_id": id, "version": cur.Version},
			next,
		)
		if err != nil {
			return types.AccessRequest{}, unavailable("replace request", err)
		}
		if res.MatchedCount == 1 {
			return next, nil
		}
	}
	return types.AccessRequest{}, store.ErrConflict
}

func (s *RequestStore) ListByFilter(ctx context.Context, f store.RequestFilter) ([]types.AccessRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	cursor, err := s.collection.Find(ctx, requestFilter(f), opts)
	if err != nil {
		return nil, unavailable("find requests", err)
	}
	defer cursor.Close(ctx)

	out := []types.AccessRequest{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, unavailable("decode requests", err)
	}
	return out, nil
}

func requestFilter(f store.RequestFilter) bson.M {
	filter := bson.M{}
	if f.ResidentID != "" {
		filter["residentId"] = f.ResidentID
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.ActiveOnly {
		filter["status"] = types.StatusAuthorized
		filter["groupFinalExit"] = false
	}
	created := bson.M{}
	if !f.CreatedFrom.IsZero() {
		created["$gte"] = f.CreatedFrom
	}
	if !f.CreatedTo.IsZero() {
		created["$lte"] = f.CreatedTo
	}
	if len(created) > 0 {
		filter["createdAt"] = created
	}
	return filter
}
