package models

// NotificationPayload is the payload of a scheduled guest/host message.
// Delivery mechanics are external; the engine only schedules the task.
type NotificationPayload struct {
	Target       string `json:"target"` // "guest" or "host"
	Email        string `json:"email"`
	PropertySlug string `json:"propertySlug"`
	BookingID    string `json:"bookingId"`
	Subject      string `json:"subject"`
	Body         string `json:"body"`
}
