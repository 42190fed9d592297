package acl

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chantier/backend/internal/domain/shared"
)

func TestNewChantierRef(t *testing.T) {
	t.Run("wraps a valid UUID", func(t *testing.T) {
		id := uuid.New()
		ref, err := NewChantierRef(id)
		require.NoError(t, err)
		assert.Equal(t, id, ref.UUID())
		assert.False(t, ref.IsEmpty())
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := NewChantierRef(uuid.Nil)
		assert.Error(t, err)
	})

	t.Run("parses string form", func(t *testing.T) {
		id := uuid.New()
		ref, err := ParseChantierRef(id.String())
		require.NoError(t, err)
		assert.True(t, ref.Equals(MustNewChantierRef(id)))
	})

	t.Run("rejects malformed string", func(t *testing.T) {
		_, err := ParseChantierRef("not-a-uuid")
		assert.Error(t, err)
	})
}

func TestStatutChantier_EstFerme(t *testing.T) {
	assert.True(t, StatutChantierFerme.EstFerme())
	assert.False(t, StatutChantierEnCours.EstFerme())
	assert.False(t, StatutChantierSuspendu.EstFerme())
	assert.False(t, StatutChantierEnPreparation.EstFerme())
}

type stubStatusService struct {
	statut StatutChantier
	err    error
}

func (s *stubStatusService) GetStatut(ctx context.Context, chantierID uuid.UUID) (StatutChantier, error) {
	return s.statut, s.err
}

func (s *stubStatusService) ChantierExists(ctx context.Context, chantierID uuid.UUID) (bool, error) {
	return s.err == nil, s.err
}

func TestVerifierChantierOuvert(t *testing.T) {
	ctx := context.Background()

	t.Run("open chantier passes", func(t *testing.T) {
		svc := &stubStatusService{statut: StatutChantierEnCours}
		assert.NoError(t, VerifierChantierOuvert(ctx, svc, uuid.New()))
	})

	t.Run("suspended chantier still accepts writes", func(t *testing.T) {
		svc := &stubStatusService{statut: StatutChantierSuspendu}
		assert.NoError(t, VerifierChantierOuvert(ctx, svc, uuid.New()))
	})

	t.Run("closed chantier is refused", func(t *testing.T) {
		svc := &stubStatusService{statut: StatutChantierFerme}
		err := VerifierChantierOuvert(ctx, svc, uuid.New())
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CHANTIER_FERME", domainErr.Code)
	})

	t.Run("lookup failure propagates", func(t *testing.T) {
		svc := &stubStatusService{err: shared.ErrNotFound}
		assert.ErrorIs(t, VerifierChantierOuvert(ctx, svc, uuid.New()), shared.ErrNotFound)
	})
}
