package mongodb

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BrandonDHaskell/Portunus/gatehouse/internal/gatehouse/types"
)

const auditSeqCounter = "audit_events"

// AuditStore appends to audit_events.  Seq comes from a counters document
// so append order survives clock skew between console hosts.
type AuditStore struct {
	collection *mongo.Collection
	counters   *mongo.Collection
}

func NewAuditStore(ctx context.Context, db *mongo.Database) (*AuditStore, error) {
	collection := db.Collection("audit_events")

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "seq", Value: -1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "requestId", Value: 1}}},
	})
	if err != nil {
		return nil, unavailable("create audit indexes", err)
	}

	return &AuditStore{
		collection: collection,
		counters:   db.Collection("counters"),
	}, nil
}

func (s *AuditStore) Append(ctx context.Context, ev types.AuditEvent) (string, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": auditSeqCounter},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return "", unavailable("next audit seq", err)
	}
	ev.Seq = counter.Seq

	if _, err := s.collection.InsertOne(ctx, ev); err != nil {
		return "", unavailable("insert audit event", err)
	}
	return ev.ID, nil
}

func (s *AuditStore) Recent(ctx context.Context, limit int) ([]types.AuditEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, unavailable("find audit events", err)
	}
	defer cursor.Close(ctx)

	var out []types.AuditEvent
	if err := cursor.All(ctx, &out); err != nil {
		return nil, unavailable("decode audit events", err)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
