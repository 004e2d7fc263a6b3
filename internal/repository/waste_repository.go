package repository

import (
	"context"
	"errors"

	"github.com/ecoleta/ecoleta-api/internal/models"
	"github.com/ecoleta/ecoleta-api/pkg/apperrors"
	"github.com/ecoleta/ecoleta-api/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WasteRepository reads the waste-type catalog. The catalog is maintained
// elsewhere; this repository never writes.
type WasteRepository struct {
	collection *mongo.Collection
}

// NewWasteRepository creates a new instance of WasteRepository.
func NewWasteRepository(db *mongo.Database) *WasteRepository {
	return &WasteRepository{
		collection: db.Collection("waste_types"),
	}
}

// GetAllWasteTypes fetches the full waste-type catalog.
func (r *WasteRepository) GetAllWasteTypes(ctx context.Context) ([]models.WasteType, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		logger.Log.WithError(err).Error("Failed to fetch waste types")
		return nil, wrapMongoErr(err, "failed to fetch waste types")
	}
	defer cursor.Close(ctx)

	var wastes []models.WasteType
	for cursor.Next(ctx) {
		var waste models.WasteType
		if err := cursor.Decode(&waste); err != nil {
			logger.Log.WithError(err).Error("Failed to decode waste type")
			return nil, wrapMongoErr(err, "failed to decode waste type")
		}
		wastes = append(wastes, waste)
	}

	return wastes, nil
}

// GetWasteTypeByID fetches a single waste type.
func (r *WasteRepository) GetWasteTypeByID(ctx context.Context, id primitive.ObjectID) (*models.WasteType, error) {
	var waste models.WasteType

	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&waste)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.Newf(apperrors.KindNotFound, "waste type %s not found", id.Hex())
		}
		return nil, wrapMongoErr(err, "failed to find waste type")
	}

	return &waste, nil
}
