package holdRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"innkeep/database"
	"innkeep/models"
	"innkeep/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// HoldRepository defines the interface for hold data access.
type HoldRepository interface {
	Create(ctx context.Context, hold *models.Hold) error
	GetByID(ctx context.Context, id string) (*models.Hold, error)
	// TransitionStatus is a compare-and-set on the hold status: the update
	// only applies while the hold is still in the expected state. The sweep
	// and a racing conversion can both call this; exactly one wins.
	TransitionStatus(ctx context.Context, id, from, to string, set bson.M) (*models.Hold, error)
	// FindExpired lists holds still "created" whose expiry has passed.
	FindExpired(ctx context.Context, now time.Time) ([]models.Hold, error)
	// LiveIDs returns ids of holds that legitimately hold calendar nights.
	LiveIDs(ctx context.Context, propertySlug string) (map[string]bool, error)
}

// MongoHoldRepo implements HoldRepository using MongoDB.
type MongoHoldRepo struct {
	coll *mongo.Collection
}

func NewMongoHoldRepo() *MongoHoldRepo {
	coll := database.DB().Collection("holds")
	repo := &MongoHoldRepo{coll: coll}
	if err := repo.ensureIndexes(); err != nil {
		utils.GetLogger().Sugar().Fatalf("hold repo: failed to create indexes: %v", err)
	}
	return repo
}

func (r *MongoHoldRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}}},
		{Keys: bson.D{{Key: "property_slug", Value: 1}, {Key: "status", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoHoldRepo) Create(ctx context.Context, hold *models.Hold) error {
	if _, err := r.coll.InsertOne(ctx, hold); err != nil {
		return fmt.Errorf("failed to insert hold %s: %w", hold.ID, err)
	}
	return nil
}

func (r *MongoHoldRepo) GetByID(ctx context.Context, id string) (*models.Hold, error) {
	var hold models.Hold
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&hold); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewDomainError(utils.KindNotFound, "hold %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch hold %s: %w", id, err)
	}
	return &hold, nil
}

func (r *MongoHoldRepo) TransitionStatus(ctx context.Context, id, from, to string, set bson.M) (*models.Hold, error) {
	update := bson.M{"status": to, "updated_at": time.Now()}
	for k, v := range set {
		update[k] = v
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var hold models.Hold
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": update},
		opts,
	).Decode(&hold)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewDomainError(utils.KindConflict,
				"hold %s is not %s, cannot move to %s", id, from, to)
		}
		return nil, fmt.Errorf("failed to transition hold %s to %s: %w", id, to, err)
	}
	return &hold, nil
}

func (r *MongoHoldRepo) FindExpired(ctx context.Context, now time.Time) ([]models.Hold, error) {
	filter := bson.M{
		"status":     models.HoldCreated,
		"expires_at": bson.M{"$lte": now},
	}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired holds: %w", err)
	}
	defer cursor.Close(ctx)

	var holds []models.Hold
	if err := cursor.All(ctx, &holds); err != nil {
		return nil, fmt.Errorf("failed to decode expired holds: %w", err)
	}
	return holds, nil
}

func (r *MongoHoldRepo) LiveIDs(ctx context.Context, propertySlug string) (map[string]bool, error) {
	filter := bson.M{
		"property_slug": propertySlug,
		"status":        models.HoldCreated,
	}
	raw, err := r.coll.Distinct(ctx, "_id", filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list live hold ids: %w", err)
	}
	ids := make(map[string]bool, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			ids[s] = true
		}
	}
	return ids, nil
}
