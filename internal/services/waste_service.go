package services

import (
	"context"
	"fmt"

	"github.com/ecoleta/ecoleta-api/internal/models"
	"github.com/ecoleta/ecoleta-api/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WasteService exposes the read-only waste-type catalog.
type WasteService struct {
	repo WasteStore
}

// NewWasteService creates a new instance of WasteService.
func NewWasteService(repo WasteStore) *WasteService {
	return &WasteService{
		repo: repo,
	}
}

// ListWasteTypes returns the full catalog.
func (s *WasteService) ListWasteTypes(ctx context.Context) ([]models.WasteType, error) {
	wastes, err := s.repo.GetAllWasteTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list waste types: %v", err)
	}
	return wastes, nil
}

// GetWasteType returns one catalog entry.
func (s *WasteService) GetWasteType(ctx context.Context, id string) (*models.WasteType, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.Newf(apperrors.KindValidation, "invalid waste type ID: %v", err)
	}
	return s.repo.GetWasteTypeByID(ctx, objID)
}
