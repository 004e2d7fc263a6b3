package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScoreStatus is the lifecycle state of a participation ledger. A score only
// moves active → completed or active → expired, never backward.
type ScoreStatus string

const (
	ScoreStatusActive    ScoreStatus = "active"
	ScoreStatusCompleted ScoreStatus = "completed"
	ScoreStatusExpired   ScoreStatus = "expired"
	ScoreStatusInactive  ScoreStatus = "inactive"
)

// ChallengeProgress tracks the accumulated value for one challenge of the
// enrolled goal. Current never exceeds the challenge target (clamped on
// write) and never decreases.
type ChallengeProgress struct {
	ChallengeID primitive.ObjectID `bson:"challenge_id" json:"challenge_id"`
	Current     float64            `bson:"current_value" json:"current_value"`
}

// Score is one user's enrollment in one goal, holding per-challenge progress
// and the points earned on completion. Version backs optimistic concurrency
// on progress writes.
type Score struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID  `bson:"user_id" json:"user_id"`
	GoalID       primitive.ObjectID  `bson:"goal_id" json:"goal_id"`
	Status       ScoreStatus         `bson:"status" json:"status"`
	Progress     []ChallengeProgress `bson:"progress" json:"progress"`
	EarnedPoints int64               `bson:"earned_points" json:"earned_points"`
	ExpiresAt    time.Time           `bson:"expires_at" json:"expires_at"`
	Version      int64               `bson:"version" json:"-"`
	CreatedAt    time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time           `bson:"updated_at" json:"updated_at"`
}

// ProgressFor returns the progress entry for the given challenge, or nil.
func (s *Score) ProgressFor(challengeID primitive.ObjectID) *ChallengeProgress {
	for i := range s.Progress {
		if s.Progress[i].ChallengeID == challengeID {
			return &s.Progress[i]
		}
	}
	return nil
}
