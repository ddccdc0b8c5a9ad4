package propertyRepo

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

// PropertyRepository is the read interface onto the property catalog. The
// catalog itself is maintained externally; Upsert exists for seeding.
type PropertyRepository interface {
	GetBySlug(ctx context.Context, slug string) (*models.Property, error)
	ListSlugs(ctx context.Context) ([]string, error)
	Upsert(ctx context.Context, property *models.Property) error
}

// MongoPropertyRepo implements PropertyRepository using MongoDB.
type MongoPropertyRepo struct {
	coll *mongo.Collection
}

func NewMongoPropertyRepo() *MongoPropertyRepo {
	coll := database.DB().Collection("properties")
	repo := &MongoPropertyRepo{coll: coll}
	if err := repo.ensureIndexes(); err != nil {
		utils.GetLogger().Sugar().Fatalf("property repo: failed to create indexes: %v", err)
	}
	return repo
}

func (r *MongoPropertyRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "slug", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := r.coll.Indexes().CreateOne(ctx, idx); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoPropertyRepo) GetBySlug(ctx context.Context, slug string) (*models.Property, error) {
	var property models.Property
	if err := r.coll.FindOne(ctx, bson.M{"slug": slug}).Decode(&property); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewDomainError(utils.KindNotFound, "property %q not found", slug)
		}
		return nil, fmt.Errorf("failed to fetch property %q: %w", slug, err)
	}
	return &property, nil
}

func (r *MongoPropertyRepo) ListSlugs(ctx context.Context) ([]string, error) {
	raw, err := r.coll.Distinct(ctx, "slug", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list property slugs: %w", err)
	}
	slugs := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			slugs = append(slugs, s)
		}
	}
	return slugs, nil
}

func (r *MongoPropertyRepo) Upsert(ctx context.Context, property *models.Property) error {
	property.UpdatedAt = time.Now()
	if property.CreatedAt.IsZero() {
		property.CreatedAt = property.UpdatedAt
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.coll.ReplaceOne(ctx, bson.M{"slug": property.Slug}, property, opts); err != nil {
		return fmt.Errorf("failed to upsert property %q: %w", property.Slug, err)
	}
	return nil
}
