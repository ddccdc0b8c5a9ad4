package models

import "time"

// CalendarDay is one occupied night in the calendar index. The document id is
// "<propertySlug>|<date>", so the collection's unique _id index is what makes
// a reserve an atomic check-and-insert: two reservations can never claim the
// same night.
type CalendarDay struct {
	ID            string    `bson:"_id" json:"id"`
	PropertySlug  string    `bson:"property_slug" json:"propertySlug"`
	Date          string    `bson:"date" json:"date"` // "YYYY-MM-DD"
	ReservationID string    `bson:"reservation_id" json:"reservationId"`
	ReservedAt    time.Time `bson:"reserved_at" json:"reservedAt"`
}

// CalendarDayID builds the document id for a property night.
func CalendarDayID(propertySlug, date string) string {
	return propertySlug + "|" + date
}
