// Seed utility: loads a small demo catalog (properties, rate overrides,
// coupons) into the configured database for local development.
package main

import (
	"context"
	"log"
	"time"

	"innkeep/config"
	"innkeep/database"
	propertyRepo "innkeep/database/repository/property"
	ratesRepo "innkeep/database/repository/rates"
	"innkeep/models"
	"innkeep/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	config.LoadConfig()
	database.InitDB()
	utils.InitRedis()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	properties := propertyRepo.NewMongoPropertyRepo()
	rates := ratesRepo.NewMongoRateTableRepo(utils.GetRatesCacheClient())

	now := time.Now()
	catalog := []models.Property{
		{
			Slug:             "seaside-villa",
			Name:             "Seaside Villa",
			BaseRateCents:    18500,
			CleaningFeeCents: 7500,
			BaseOccupancy:    4,
			ExtraGuestCents:  2500,
			MaxGuests:        8,
			BaseCurrency:     "USD",
			HoldFeeCents:     5000,
			HoldDuration:     24,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
		{
			Slug:             "mountain-cabin",
			Name:             "Mountain Cabin",
			BaseRateCents:    9900,
			CleaningFeeCents: 4000,
			BaseOccupancy:    2,
			ExtraGuestCents:  1500,
			MaxGuests:        4,
			BaseCurrency:     "USD",
			LOSDiscountTiers: []models.LOSTier{
				{MinNights: 5, Percent: 5},
				{MinNights: 10, Percent: 12},
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	for i := range catalog {
		if err := properties.Upsert(ctx, &catalog[i]); err != nil {
			log.Fatalf("Failed to seed property %s: %v", catalog[i].Slug, err)
		}
		log.Printf("Seeded property %s", catalog[i].Slug)
	}

	// Weekend surcharge on the villa for the next eight weeks.
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for i := 0; i < 56; i++ {
		d := day.AddDate(0, 0, i)
		if wd := d.Weekday(); wd == time.Friday || wd == time.Saturday {
			if err := rates.SetRate(ctx, "seaside-villa", d.Format(models.DateLayout), 22500); err != nil {
				log.Fatalf("Failed to seed rate override: %v", err)
			}
		}
	}
	log.Println("Seeded weekend rate overrides for seaside-villa")

	coupons := database.DB().Collection("coupons")
	demo := models.Coupon{
		Code:      "WELCOME10",
		Percent:   10,
		ValidFrom: day,
		ValidTo:   day.AddDate(1, 0, 0),
		MaxUses:   100,
		CreatedAt: now,
	}
	if _, err := coupons.UpdateOne(ctx,
		bson.M{"_id": demo.Code},
		bson.M{"$set": bson.M{
			"percent":    demo.Percent,
			"valid_from": demo.ValidFrom,
			"valid_to":   demo.ValidTo,
			"max_uses":   demo.MaxUses,
			"created_at": demo.CreatedAt,
		}},
		options.Update().SetUpsert(true),
	); err != nil {
		log.Fatalf("Failed to seed coupon: %v", err)
	}
	log.Println("Seeded coupon WELCOME10")
}
