package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WasteType is a read-only catalog entry referenced by challenges and waste
// line items.
type WasteType struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Unit        string             `bson:"unit" json:"unit"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}
