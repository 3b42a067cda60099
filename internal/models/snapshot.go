package models

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	SnapshotsColName = "dashboard_snapshots"
)

// DashboardSnapshot is one recorded revenue rollup for an operator.
type DashboardSnapshot struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OperatorID    string             `bson:"operator_id" json:"operator_id" validate:"required"`
	TodayNet      float64            `bson:"today_net" json:"today_net"`
	WeekNet       float64            `bson:"week_net" json:"week_net"`
	PendingNet    float64            `bson:"pending_net" json:"pending_net"`
	CriticalCount int                `bson:"critical_count" json:"critical_count"`
	AvgBooking    float64            `bson:"avg_booking" json:"avg_booking"`
	TotalNet      float64            `bson:"total_net" json:"total_net"`
	TotalBookings int                `bson:"total_bookings" json:"total_bookings"`
	UrgentCount   int                `bson:"urgent_count" json:"urgent_count"`
	TakenAt       time.Time          `bson:"taken_at" json:"taken_at"`
	ExpiresAt     time.Time          `bson:"expires_at" json:"expires_at"` // TTL index field
}

type SnapshotRepo interface {
	SaveSnapshot(ctx context.Context, snap *DashboardSnapshot, ttl time.Duration) (bool, error)
	ListSnapshots(ctx context.Context, operatorID string, limit int) ([]*DashboardSnapshot, error)
	EnsureIndexes(ctx context.Context) error
}

// snapshotMinGap keeps a burst of refreshes from writing near-identical rows.
const snapshotMinGap = time.Minute

// EnsureIndexes creates the TTL and lookup indexes for snapshots.
func (mdb *MongodbRepo) EnsureIndexes(ctx context.Context) error {
	col, err := mdb.GetCollection(ctx, DBName, SnapshotsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().
				SetExpireAfterSeconds(0). // Expire at the time specified in expires_at
				SetName("expires_at_ttl"),
		},
		{
			Keys: bson.D{
				{Key: "operator_id", Value: 1},
				{Key: "taken_at", Value: -1},
			},
			Options: options.Index().SetName("operator_taken_at_idx"),
		},
	}

	if _, err := col.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("error creating indexes: %w", err)
	}
	return nil
}

// SaveSnapshot stores a snapshot unless one for the same operator was taken
// within snapshotMinGap. It reports whether a row was written.
func (mdb *MongodbRepo) SaveSnapshot(ctx context.Context, snap *DashboardSnapshot, ttl time.Duration) (bool, error) {
	if err := Validate.Struct(snap); err != nil {
		return false, ValidationError{Field: "snapshot", Msg: err.Error(), Err: err}
	}
	col, err := mdb.GetCollection(ctx, DBName, SnapshotsColName)
	if err != nil {
		return false, fmt.Errorf("error getting collection: %w", err)
	}

	if snap.TakenAt.IsZero() {
		snap.TakenAt = time.Now()
	}

	var recent DashboardSnapshot
	err = col.FindOne(ctx, bson.M{
		"operator_id": snap.OperatorID,
		"taken_at":    bson.M{"$gte": snap.TakenAt.Add(-snapshotMinGap)},
	}).Decode(&recent)
	if err == nil {
		return false, nil
	}
	if err != mongo.ErrNoDocuments {
		return false, fmt.Errorf("error checking recent snapshot: %w", err)
	}

	snap.ExpiresAt = snap.TakenAt.Add(ttl)
	if snap.ID.IsZero() {
		snap.ID = primitive.NewObjectID()
	}

	if _, err := col.InsertOne(ctx, snap); err != nil {
		return false, fmt.Errorf("error inserting snapshot: %w", err)
	}
	return true, nil
}

// ListSnapshots returns the newest snapshots first.
func (mdb *MongodbRepo) ListSnapshots(ctx context.Context, operatorID string, limit int) ([]*DashboardSnapshot, error) {
	col, err := mdb.GetCollection(ctx, DBName, SnapshotsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "taken_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := col.Find(ctx, bson.M{"operator_id": operatorID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding snapshots: %w", err)
	}
	defer cursor.Close(ctx)

	var snaps []*DashboardSnapshot
	if err := cursor.All(ctx, &snaps); err != nil {
		return nil, fmt.Errorf("error decoding snapshots: %w", err)
	}
	return snaps, nil
}
