package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chantier/backend/internal/domain/audit"
)

// TestRegisterAuditGuards tests that the GORM callbacks make the audit trail
// append-only regardless of what the calling code attempts
func TestRegisterAuditGuards(t *testing.T) {
	t.Run("rejects UPDATE on the audit table before any SQL runs", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		require.NoError(t, RegisterAuditGuards(db.DB))

		err := db.DB.Model(&audit.LogEntry{}).
			Where("id = ?", uuid.New().String()).
			Update("action", "REWRITTEN").Error

		assert.ErrorIs(t, err, ErrAuditTrailImmutable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects DELETE on the audit table before any SQL runs", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		require.NoError(t, RegisterAuditGuards(db.DB))

		err := db.DB.Delete(&audit.LogEntry{}, "id = ?", uuid.New().String()).Error

		assert.ErrorIs(t, err, ErrAuditTrailImmutable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("leaves other tables writable", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		require.NoError(t, RegisterAuditGuards(db.DB))

		type Fournisseur struct {
			ID uint
		}

		mock.ExpectExec(`DELETE FROM "fournisseurs"`).
			WithArgs("42").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := db.DB.Delete(&Fournisseur{}, "id = ?", "42").Error

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// TestGormTrailRepository_Record tests that appends still go through with the
// guards installed
func TestGormTrailRepository_Record(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	require.NoError(t, RegisterAuditGuards(db.DB))
	repo := NewGormTrailRepository(db.DB)

	entry, err := audit.NewLogEntry("Achat", uuid.New(), audit.ActionCreate,
		nil, audit.Values{"statut": "DEMANDE"}, nil)
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO "audit_log_entries"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Record(context.Background(), entry)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
