package bookingRepo

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

// BookingRepository defines the interface for booking data access.
type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	// TransitionStatus flips status from one value to another in a single
	// compare-and-set, so racing transitions cannot both win.
	TransitionStatus(ctx context.Context, id, from, to string, set bson.M) (*models.Booking, error)
	// FindPendingBefore lists pending bookings created before the cutoff,
	// i.e. abandoned flows the timeout sweep must reclaim.
	FindPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Booking, error)
	// FindCheckedOut lists confirmed bookings whose check-out has passed.
	FindCheckedOut(ctx context.Context, now time.Time) ([]models.Booking, error)
	// LiveIDs returns ids of bookings that legitimately hold calendar nights.
	LiveIDs(ctx context.Context, propertySlug string) (map[string]bool, error)
}

// MongoBookingRepo implements BookingRepository using MongoDB.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

func NewMongoBookingRepo() *MongoBookingRepo {
	coll := database.DB().Collection("bookings")
	repo := &MongoBookingRepo{coll: coll}
	if err := repo.ensureIndexes(); err != nil {
		utils.GetLogger().Sugar().Fatalf("booking repo: failed to create indexes: %v", err)
	}
	return repo
}

func (r *MongoBookingRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "property_slug", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "range.check_out", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	if _, err := r.coll.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("failed to insert booking %s: %w", booking.ID, err)
	}
	return nil
}

func (r *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewDomainError(utils.KindNotFound, "booking %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch booking %s: %w", id, err)
	}
	return &booking, nil
}

func (r *MongoBookingRepo) TransitionStatus(ctx context.Context, id, from, to string, set bson.M) (*models.Booking, error) {
	update := bson.M{"status": to, "updated_at": time.Now()}
	for k, v := range set {
		update[k] = v
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var booking models.Booking
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": update},
		opts,
	).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewDomainError(utils.KindConflict,
				"booking %s is not %s, cannot move to %s", id, from, to)
		}
		return nil, fmt.Errorf("failed to transition booking %s to %s: %w", id, to, err)
	}
	return &booking, nil
}

func (r *MongoBookingRepo) FindPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	return r.find(ctx, bson.M{
		"status":     models.BookingPending,
		"created_at": bson.M{"$lte": cutoff},
	})
}

func (r *MongoBookingRepo) FindCheckedOut(ctx context.Context, now time.Time) ([]models.Booking, error) {
	return r.find(ctx, bson.M{
		"status":          models.BookingConfirmed,
		"range.check_out": bson.M{"$lte": models.Midnight(now)},
	})
}

func (r *MongoBookingRepo) find(ctx context.Context, filter bson.M) ([]models.Booking, error) {
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *MongoBookingRepo) LiveIDs(ctx context.Context, propertySlug string) (map[string]bool, error) {
	filter := bson.M{
		"property_slug": propertySlug,
		"status": bson.M{"$in": []string{
			models.BookingPending, models.BookingConfirmed, models.BookingCompleted,
		}},
	}
	raw, err := r.coll.Distinct(ctx, "_id", filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list live booking ids: %w", err)
	}
	ids := make(map[string]bool, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			ids[s] = true
		}
	}
	return ids, nil
}
