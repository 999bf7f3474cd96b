package models

import "time"

// SubscriptionType — тип доступа пользователя к платформе.
type SubscriptionType string

const (
	SubscriptionTrial SubscriptionType = "trial"
	SubscriptionPaid  SubscriptionType = "paid"
	SubscriptionNone  SubscriptionType = "none"
)

// TrialNotification публикуется в RabbitMQ, когда пробный период подходит к концу или истёк.
type TrialNotification struct {
	ProfileID     string    `json:"profile_id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name"`
	Urgency       string    `json:"urgency"`
	DaysRemaining int       `json:"days_remaining"`
	TrialEndDate  time.Time `json:"trial_end_date"`
}
