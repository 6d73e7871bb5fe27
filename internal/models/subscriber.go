package models

import "time"

// SubscriberStatus is the lifecycle state of a subscriber. Status only ever
// moves forward, from pending confirmation to confirmed.
type SubscriberStatus string

const (
	SubscriberStatusPendingConfirmation SubscriberStatus = "pending_confirmation"
	SubscriberStatusConfirmed           SubscriberStatus = "confirmed"
)

// Subscriber is a newsletter recipient. It is never deleted by the core.
type Subscriber struct {
	ID            string
	Email         string
	Name          string
	SubscribedAt  time.Time
	Status        SubscriberStatus
}

// SubscriptionToken is the single-use-by-convention (but never invalidated)
// credential a subscriber clicks to confirm their subscription.
type SubscriptionToken struct {
	Token        string
	SubscriberID string
}
