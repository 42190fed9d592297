package acl

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chantier/backend/internal/domain/shared"
	domainacl "github.com/chantier/backend/internal/domain/shared/acl"
)

// chantiersTable is owned by the chantier management context. The ledger
// only ever reads two columns from it and never writes.
const chantiersTable = "chantiers"

// GormChantierStatusService reads the lifecycle state of a chantier from the
// owning context's table. It is the uncached implementation; wrap it with
// NewCachedChantierStatusService in production wiring.
type GormChantierStatusService struct {
	db *gorm.DB
}

// NewGormChantierStatusService creates a new GormChantierStatusService
func NewGormChantierStatusService(db *gorm.DB) *GormChantierStatusService {
	return &GormChantierStatusService{db: db}
}

// GetStatut returns the current lifecycle state of the chantier
func (s *GormChantierStatusService) GetStatut(ctx context.Context, chantierID uuid.UUID) (domainacl.StatutChantier, error) {
	var statut string
	err := s.db.WithContext(ctx).
		Table(chantiersTable).
		Select("statut").
		Where("id = ?", chantierID).
		Take(&statut).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	return domainacl.StatutChantier(statut), nil
}

// ChantierExists checks existence without fetching state
func (s *GormChantierStatusService) ChantierExists(ctx context.Context, chantierID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Table(chantiersTable).
		Where("id = ?", chantierID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Ensure GormChantierStatusService implements ChantierStatusService
var _ domainacl.ChantierStatusService = (*GormChantierStatusService)(nil)
