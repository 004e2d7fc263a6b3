package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScheduleStatus is the lifecycle state of a pickup request.
type ScheduleStatus string

const (
	ScheduleStatusAwaitingConfirmation ScheduleStatus = "awaiting_confirmation"
	ScheduleStatusConfirmed            ScheduleStatus = "confirmed"
	ScheduleStatusCollected            ScheduleStatus = "collected"
	ScheduleStatusCancelled            ScheduleStatus = "cancelled"
)

// allowedTransitions is the closed transition table for pickup requests.
// collected and cancelled are terminal.
var allowedTransitions = map[ScheduleStatus][]ScheduleStatus{
	ScheduleStatusAwaitingConfirmation: {ScheduleStatusConfirmed, ScheduleStatusCancelled},
	ScheduleStatusConfirmed:            {ScheduleStatusCollected, ScheduleStatusCancelled},
}

// CanTransition reports whether moving a pickup request from one status to
// another is legal.
func CanTransition(from, to ScheduleStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidScheduleStatus reports whether s is one of the known statuses.
func ValidScheduleStatus(s ScheduleStatus) bool {
	switch s {
	case ScheduleStatusAwaitingConfirmation, ScheduleStatusConfirmed,
		ScheduleStatusCollected, ScheduleStatusCancelled:
		return true
	}
	return false
}

// WasteItem is one waste line of a pickup request: the planned amounts on
// creation, the actually gathered amounts once collected.
type WasteItem struct {
	WasteTypeID primitive.ObjectID `bson:"waste_type_id" json:"waste_type_id" validate:"required"`
	Quantity    float64            `bson:"quantity" json:"quantity" validate:"gte=0"`
	Weight      float64            `bson:"weight" json:"weight" validate:"gte=0"`
}

// Schedule is a user's request to have waste collected at a collection
// point. CollectedWastes stays empty until the request reaches collected and
// is immutable afterward.
type Schedule struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID            primitive.ObjectID `bson:"user_id" json:"user_id"`
	CollectionPointID primitive.ObjectID `bson:"collection_point_id" json:"collection_point_id"`
	ScheduledFor      time.Time          `bson:"scheduled_for" json:"scheduled_for"`
	Status            ScheduleStatus     `bson:"status" json:"status"`
	RequestedWastes   []WasteItem        `bson:"requested_wastes" json:"requested_wastes"`
	CollectedWastes   []WasteItem        `bson:"collected_wastes,omitempty" json:"collected_wastes,omitempty"`
	Collector         string             `bson:"collector,omitempty" json:"collector,omitempty"`
	CollectedAt       *time.Time         `bson:"collected_at,omitempty" json:"collected_at,omitempty"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at" json:"updated_at"`
}
