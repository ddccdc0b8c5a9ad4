package calendarRepo

import (
	"context"
	"fmt"
	"time"

	"innkeep/database"
	"innkeep/models"
	"innkeep/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CalendarRepository is the authoritative index of occupied nights per
// property. Reserve is the single serialization point of the whole engine:
// it must check freedom and claim the nights in one atomic step.
type CalendarRepository interface {
	// Reserve claims every night of the range for the reservation, failing
	// with a conflict error if any night is already claimed. On conflict no
	// night remains claimed by this reservation.
	Reserve(ctx context.Context, propertySlug string, r models.DateRange, reservationID string) error
	// Release removes all nights claimed by the reservation. Releasing an
	// already-released reservation is a no-op.
	Release(ctx context.Context, propertySlug, reservationID string) error
	// Rekey hands a claim off to another reservation id (hold conversion).
	// The nights are never released in between.
	Rekey(ctx context.Context, propertySlug, fromID, toID string) error
	// ConflictingDates returns the claimed nights that intersect the range.
	ConflictingDates(ctx context.Context, propertySlug string, r models.DateRange) ([]string, error)
	// OccupiedDates lists claimed nights in [from, to).
	OccupiedDates(ctx context.Context, propertySlug string, from, to time.Time) ([]string, error)
	// ReservationIDs lists every reservation currently holding at least one
	// night for the property. Used by the reconciliation sweep.
	ReservationIDs(ctx context.Context, propertySlug string) ([]string, error)
}

// MongoCalendarRepo implements CalendarRepository on a collection of one
// document per occupied night, keyed "<property>|<date>". The unique _id
// index makes the insert the atomic check-and-claim.
type MongoCalendarRepo struct {
	coll *mongo.Collection
}

// NewMongoCalendarRepo creates the repository and ensures its indexes.
func NewMongoCalendarRepo() *MongoCalendarRepo {
	coll := database.DB().Collection("calendar_days")
	repo := &MongoCalendarRepo{coll: coll}
	if err := repo.ensureIndexes(); err != nil {
		utils.GetLogger().Sugar().Fatalf("calendar repo: failed to create indexes: %v", err)
	}
	return repo
}

func (r *MongoCalendarRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "property_slug", Value: 1}, {Key: "date", Value: 1}}},
		{Keys: bson.D{{Key: "reservation_id", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoCalendarRepo) Reserve(ctx context.Context, propertySlug string, rng models.DateRange, reservationID string) error {
	now := time.Now()
	docs := make([]interface{}, 0, rng.Nights())
	for _, date := range rng.Dates() {
		docs = append(docs, models.CalendarDay{
			ID:            models.CalendarDayID(propertySlug, date),
			PropertySlug:  propertySlug,
			Date:          date,
			ReservationID: reservationID,
			ReservedAt:    now,
		})
	}

	// Ordered insert stops at the first duplicate key, so a losing reserve
	// only ever leaves a prefix of its own nights behind; those are rolled
	// back by reservation id before returning the conflict.
	_, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		if _, delErr := r.coll.DeleteMany(ctx, bson.M{"reservation_id": reservationID}); delErr != nil {
			return fmt.Errorf("failed to roll back partial claim for %s: %w", reservationID, delErr)
		}
		return utils.NewDomainError(utils.KindConflict,
			"dates %s are no longer available for property %s", rng, propertySlug)
	}
	return fmt.Errorf("failed to claim dates for %s: %w", reservationID, err)
}

func (r *MongoCalendarRepo) Release(ctx context.Context, propertySlug, reservationID string) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{
		"property_slug":  propertySlug,
		"reservation_id": reservationID,
	})
	if err != nil {
		return fmt.Errorf("failed to release claim for %s: %w", reservationID, err)
	}
	return nil
}

func (r *MongoCalendarRepo) Rekey(ctx context.Context, propertySlug, fromID, toID string) error {
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"property_slug": propertySlug, "reservation_id": fromID},
		bson.M{"$set": bson.M{"reservation_id": toID}},
	)
	if err != nil {
		return fmt.Errorf("failed to rekey claim %s -> %s: %w", fromID, toID, err)
	}
	return nil
}

func (r *MongoCalendarRepo) ConflictingDates(ctx context.Context, propertySlug string, rng models.DateRange) ([]string, error) {
	return r.datesInWindow(ctx, propertySlug, rng.CheckIn.Format(models.DateLayout), rng.CheckOut.Format(models.DateLayout))
}

func (r *MongoCalendarRepo) OccupiedDates(ctx context.Context, propertySlug string, from, to time.Time) ([]string, error) {
	return r.datesInWindow(ctx, propertySlug, from.Format(models.DateLayout), to.Format(models.DateLayout))
}

// datesInWindow relies on "YYYY-MM-DD" strings sorting chronologically.
func (r *MongoCalendarRepo) datesInWindow(ctx context.Context, propertySlug, from, to string) ([]string, error) {
	filter := bson.M{
		"property_slug": propertySlug,
		"date":          bson.M{"$gte": from, "$lt": to},
	}
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query occupied dates for %s: %w", propertySlug, err)
	}
	defer cursor.Close(ctx)

	var days []models.CalendarDay
	if err := cursor.All(ctx, &days); err != nil {
		return nil, fmt.Errorf("failed to decode occupied dates: %w", err)
	}
	dates := make([]string, 0, len(days))
	for _, d := range days {
		dates = append(dates, d.Date)
	}
	return dates, nil
}

func (r *MongoCalendarRepo) ReservationIDs(ctx context.Context, propertySlug string) ([]string, error) {
	raw, err := r.coll.Distinct(ctx, "reservation_id", bson.M{"property_slug": propertySlug})
	if err != nil {
		return nil, fmt.Errorf("failed to list claim owners for %s: %w", propertySlug, err)
	}
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			ids = append(ids, s)
		}
	}
	return ids, nil
}
