package couponRepo

import (
	"context"
	"errors"
	"fmt"

	"innkeep/database"
	"innkeep/models"
	"innkeep/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CouponRepository reads administrator-created coupons and records
// redemptions. The engine never mutates coupons except the usage counter.
type CouponRepository interface {
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	// IncrementUses records one redemption, honoring the usage cap: the
	// increment only applies while uses < max_uses (or the cap is unlimited).
	IncrementUses(ctx context.Context, code string) error
}

// MongoCouponRepo implements CouponRepository using MongoDB.
type MongoCouponRepo struct {
	coll *mongo.Collection
}

func NewMongoCouponRepo() *MongoCouponRepo {
	return &MongoCouponRepo{coll: database.DB().Collection("coupons")}
}

func (r *MongoCouponRepo) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.coll.FindOne(ctx, bson.M{"_id": code}).Decode(&coupon); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewDomainError(utils.KindCouponRejected, "coupon %q not found", code)
		}
		return nil, fmt.Errorf("failed to fetch coupon %q: %w", code, err)
	}
	return &coupon, nil
}

func (r *MongoCouponRepo) IncrementUses(ctx context.Context, code string) error {
	// An unlimited coupon stores max_uses as 0 or not at all; both forms
	// must pass the cap check, not just uses < max_uses.
	filter := bson.M{
		"_id": code,
		"$or": []bson.M{
			{"max_uses": bson.M{"$exists": false}},
			{"max_uses": bson.M{"$lte": 0}},
			{"$expr": bson.M{"$lt": []string{"$uses", "$max_uses"}}},
		},
	}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"uses": 1}})
	if err != nil {
		return fmt.Errorf("failed to record redemption for %q: %w", code, err)
	}
	if res.MatchedCount == 0 {
		return utils.NewDomainError(utils.KindCouponRejected, "coupon %q is exhausted", code)
	}
	return nil
}
