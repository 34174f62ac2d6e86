package models

import (
	"time"

	"github.com/google/uuid"
)

// Channel is a notification delivery channel.
type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// NotificationKind is the category of a notification, used to look up
// per-kind preferences.
type NotificationKind string

const (
	KindSubscriptionReminder NotificationKind = "subscription_reminder"
	KindBillDue              NotificationKind = "bill_due"
	KindBudgetAlert          NotificationKind = "budget_alert"
	KindRecommendations      NotificationKind = "recommendations"
)

// Delivery statuses.
const (
	DeliveryPending = "pending"
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
)

// Notification is a persisted message sent to a user on one channel.
type Notification struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Title          string
	Message        string
	Kind           NotificationKind
	RelatedID      *uuid.UUID
	RelatedType    string
	Channel        Channel
	DeliveryStatus string
	IsRead         bool
	SentAt         *time.Time
	CreatedAt      time.Time
}

// Alert is a message to deliver to a user on every channel their
// preferences enable for its kind.
type Alert struct {
	Kind        NotificationKind
	RelatedID   *uuid.UUID
	RelatedType string
	Title       string
	Message     string
}
