package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GoalStatus is the lifecycle state of a goal. "expired" is one-way and is
// set only by the expiration sweeper.
type GoalStatus string

const (
	GoalStatusActive   GoalStatus = "active"
	GoalStatusInactive GoalStatus = "inactive"
	GoalStatusExpired  GoalStatus = "expired"
)

// ChallengeKind selects which field of a collected waste item counts toward
// the challenge target.
type ChallengeKind string

const (
	ChallengeKindQuantity ChallengeKind = "quantity"
	ChallengeKindWeight   ChallengeKind = "weight"
)

// Challenge is one waste-type-specific sub-target inside a goal.
type Challenge struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WasteTypeID primitive.ObjectID `bson:"waste_type_id" json:"waste_type_id" validate:"required"`
	Kind        ChallengeKind      `bson:"kind" json:"kind" validate:"required,oneof=quantity weight"`
	Target      float64            `bson:"target" json:"target" validate:"required,gt=0"`
}

// Goal is an admin-authored recycling target with a validity window, a point
// reward and an ordered set of challenges.
type Goal struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title" validate:"required"`
	Description string             `bson:"description" json:"description"`
	InitialDate time.Time          `bson:"initial_date" json:"initial_date" validate:"required"`
	ValidUntil  time.Time          `bson:"valid_until" json:"valid_until" validate:"required"`
	Points      int64              `bson:"points" json:"points" validate:"required,gt=0"`
	Status      GoalStatus         `bson:"status" json:"status"`
	Challenges  []Challenge        `bson:"challenges" json:"challenges" validate:"required,min=1,dive"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// ExpiredAt reports whether the goal can no longer accept progress at the
// given instant, either because the sweeper already flipped it or because
// its validity window has closed.
func (g *Goal) ExpiredAt(now time.Time) bool {
	return g.Status == GoalStatusExpired || !now.Before(g.ValidUntil)
}

// ChallengeByID returns the challenge with the given id, or nil.
func (g *Goal) ChallengeByID(id primitive.ObjectID) *Challenge {
	for i := range g.Challenges {
		if g.Challenges[i].ID == id {
			return &g.Challenges[i]
		}
	}
	return nil
}
