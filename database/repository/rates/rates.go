package ratesRepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"innkeep/database"
	"innkeep/models"
	"innkeep/utils"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RateTableRepository supplies per-night rate overrides from the external
// pricing calendar. A fetch failure is a hard stop for pricing; callers must
// not fall back to a guessed price.
type RateTableRepository interface {
	GetRateTable(ctx context.Context, propertySlug string, r models.DateRange) (models.RateTable, error)
	SetRate(ctx context.Context, propertySlug, date string, rateCents int64) error
}

type rateOverride struct {
	PropertySlug string `bson:"property_slug"`
	Date         string `bson:"date"`
	RateCents    int64  `bson:"rate_cents"`
}

// MongoRateTableRepo reads the pricing calendar from MongoDB, caching each
// property's window in Redis. The cache is retried independently of the
// reservation path.
type MongoRateTableRepo struct {
	coll     *mongo.Collection
	cache    *redis.Client
	cacheTTL time.Duration
}

func NewMongoRateTableRepo(cache *redis.Client) *MongoRateTableRepo {
	coll := database.DB().Collection("rate_calendar")
	repo := &MongoRateTableRepo{coll: coll, cache: cache, cacheTTL: 5 * time.Minute}
	if err := repo.ensureIndexes(); err != nil {
		utils.GetLogger().Sugar().Fatalf("rates repo: failed to create indexes: %v", err)
	}
	return repo
}

func (r *MongoRateTableRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "property_slug", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := r.coll.Indexes().CreateOne(ctx, idx); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoRateTableRepo) cacheKey(propertySlug string, rng models.DateRange) string {
	return fmt.Sprintf("rates:%s:%s:%s", propertySlug,
		rng.CheckIn.Format(models.DateLayout), rng.CheckOut.Format(models.DateLayout))
}

func (r *MongoRateTableRepo) GetRateTable(ctx context.Context, propertySlug string, rng models.DateRange) (models.RateTable, error) {
	key := r.cacheKey(propertySlug, rng)
	if r.cache != nil {
		if cached, err := r.cache.Get(ctx, key).Result(); err == nil {
			var table models.RateTable
			if err := json.Unmarshal([]byte(cached), &table); err == nil {
				return table, nil
			}
		}
	}

	filter := bson.M{
		"property_slug": propertySlug,
		"date": bson.M{
			"$gte": rng.CheckIn.Format(models.DateLayout),
			"$lt":  rng.CheckOut.Format(models.DateLayout),
		},
	}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rate calendar for %s: %w", propertySlug, err)
	}
	defer cursor.Close(ctx)

	var overrides []rateOverride
	if err := cursor.All(ctx, &overrides); err != nil {
		return nil, fmt.Errorf("failed to decode rate calendar: %w", err)
	}

	table := make(models.RateTable, len(overrides))
	for _, o := range overrides {
		table[o.Date] = o.RateCents
	}

	if r.cache != nil {
		if data, err := json.Marshal(table); err == nil {
			if err := r.cache.Set(ctx, key, data, r.cacheTTL).Err(); err != nil {
				utils.GetLogger().Sugar().Warnf("failed to cache rate table for %s: %v", propertySlug, err)
			}
		}
	}
	return table, nil
}

func (r *MongoRateTableRepo) SetRate(ctx context.Context, propertySlug, date string, rateCents int64) error {
	filter := bson.M{"property_slug": propertySlug, "date": date}
	update := bson.M{"$set": bson.M{"rate_cents": rateCents}}
	opts := options.Update().SetUpsert(true)
	if _, err := r.coll.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to set rate for %s %s: %w", propertySlug, date, err)
	}
	return nil
}
