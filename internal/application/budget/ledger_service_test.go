package budget

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chantier/backend/internal/domain/audit"
	"github.com/chantier/backend/internal/domain/budget"
	"github.com/chantier/backend/internal/domain/company"
	"github.com/chantier/backend/internal/domain/shared"
	"github.com/chantier/backend/internal/domain/shared/acl"
)

// MockBudgetRepository is a mock implementation of BudgetRepository
type MockBudgetRepository struct {
	mock.Mock
}

func (m *MockBudgetRepository) FindByID(ctx context.Context, id uuid.UUID) (*budget.Budget, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*budget.Budget), args.Error(1)
}

func (m *MockBudgetRepository) FindByChantier(ctx context.Context, chantierID uuid.UUID) (*budget.Budget, error) {
	args := m.Called(ctx, chantierID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*budget.Budget), args.Error(1)
}

func (m *MockBudgetRepository) FindAll(ctx context.Context, filter shared.Filter) ([]budget.Budget, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]budget.Budget), args.Error(1)
}

func (m *MockBudgetRepository) Save(ctx context.Context, b *budget.Budget, entry *audit.LogEntry) error {
	args := m.Called(ctx, b, entry)
	return args.Error(0)
}

func (m *MockBudgetRepository) SaveWithLockAndEvents(ctx context.Context, b *budget.Budget, events []shared.DomainEvent, entry *audit.LogEntry) error {
	args := m.Called(ctx, b, events, entry)
	return args.Error(0)
}

func (m *MockBudgetRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockTotalAchatsProvider is a mock implementation of TotalAchatsProvider
type MockTotalAchatsProvider struct {
	mock.Mock
}

func (m *MockTotalAchatsProvider) SumMontantEngageByChantier(ctx context.Context, chantierID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, chantierID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockCoutMainOeuvreProvider is a mock implementation of CoutMainOeuvreProvider
type MockCoutMainOeuvreProvider struct {
	mock.Mock
}

func (m *MockCoutMainOeuvreProvider) CoutMainOeuvre(ctx context.Context, chantierID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, chantierID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockCoutMaterielProvider is a mock implementation of CoutMaterielProvider
type MockCoutMaterielProvider struct {
	mock.Mock
}

func (m *MockCoutMaterielProvider) CoutMateriel(ctx context.Context, chantierID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, chantierID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockConfigurationRepository is a mock implementation of ConfigurationRepository
type MockConfigurationRepository struct {
	mock.Mock
}

func (m *MockConfigurationRepository) FindByAnnee(ctx context.Context, annee int) (*company.ConfigurationEntreprise, error) {
	args := m.Called(ctx, annee)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*company.ConfigurationEntreprise), args.Error(1)
}

func (m *MockConfigurationRepository) FindLatest(ctx context.Context) (*company.ConfigurationEntreprise, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*company.ConfigurationEntreprise), args.Error(1)
}

func (m *MockConfigurationRepository) FindAll(ctx context.Context) ([]company.ConfigurationEntreprise, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]company.ConfigurationEntreprise), args.Error(1)
}

func (m *MockConfigurationRepository) Upsert(ctx context.Context, configuration *company.ConfigurationEntreprise, entry *audit.LogEntry) error {
	args := m.Called(ctx, configuration, entry)
	return args.Error(0)
}

// MockChantierStatusService is a mock implementation of ChantierStatusService
type MockChantierStatusService struct {
	mock.Mock
}

func (m *MockChantierStatusService) GetStatut(ctx context.Context, chantierID uuid.UUID) (acl.StatutChantier, error) {
	args := m.Called(ctx, chantierID)
	return args.Get(0).(acl.StatutChantier), args.Error(1)
}

func (m *MockChantierStatusService) ChantierExists(ctx context.Context, chantierID uuid.UUID) (bool, error) {
	args := m.Called(ctx, chantierID)
	return args.Bool(0), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// MockAlertEvaluator is a mock implementation of AlertEvaluator
type MockAlertEvaluator struct {
	mock.Mock
}

func (m *MockAlertEvaluator) EvaluerBudget(ctx context.Context, chantierID uuid.UUID, totalEngage, montantInitial decimal.Decimal) error {
	args := m.Called(ctx, chantierID, totalEngage, montantInitial)
	return args.Error(0)
}

type ledgerFixture struct {
	service        *LedgerService
	budgets        *MockBudgetRepository
	achats         *MockTotalAchatsProvider
	mainOeuvre     *MockCoutMainOeuvreProvider
	materiel       *MockCoutMaterielProvider
	configs        *MockConfigurationRepository
	chantierStatus *MockChantierStatusService
	publisher      *MockEventPublisher
	alerts         *MockAlertEvaluator
}

func newLedgerFixture() *ledgerFixture {
	f := &ledgerFixture{
		budgets:        new(MockBudgetRepository),
		achats:         new(MockTotalAchatsProvider),
		mainOeuvre:     new(MockCoutMainOeuvreProvider),
		materiel:       new(MockCoutMaterielProvider),
		configs:        new(MockConfigurationRepository),
		chantierStatus: new(MockChantierStatusService),
		publisher:      new(MockEventPublisher),
		alerts:         new(MockAlertEvaluator),
	}
	f.service = NewLedgerService(f.budgets, f.achats, f.mainOeuvre, f.materiel,
		f.configs, f.chantierStatus)
	f.service.SetEventPublisher(f.publisher)
	f.service.SetAlertEvaluator(f.alerts)
	return f
}

func configWithCoeff(t *testing.T, coeff int64) *company.ConfigurationEntreprise {
	t.Helper()
	config, err := company.NewConfigurationEntreprise(company.ConfigurationParams{
		Annee:                  2026,
		CoutsFixesAnnuels:      decimal.NewFromInt(800000),
		CoeffFraisGeneraux:     decimal.NewFromInt(coeff),
		CoeffChargesPatronales: decimal.NewFromInt(45),
		CoeffHeuresSup:         decimal.NewFromInt(25),
	})
	require.NoError(t, err)
	return config
}

func openBudget(t *testing.T, chantierID uuid.UUID, montant int64) *budget.Budget {
	t.Helper()
	b, err := budget.NewBudget(chantierID, decimal.NewFromInt(montant), nil)
	require.NoError(t, err)
	return b
}

func TestLedgerService_GetEngagement(t *testing.T) {
	ctx := context.Background()
	chantierID := uuid.New()

	t.Run("aggregates purchases, labor and equipment with the overhead share", func(t *testing.T) {
		f := newLedgerFixture()
		f.budgets.On("FindByChantier", ctx, chantierID).Return(openBudget(t, chantierID, 1000000), nil)
		f.achats.On("SumMontantEngageByChantier", ctx, chantierID).Return(decimal.NewFromInt(100000), nil)
		f.mainOeuvre.On("CoutMainOeuvre", ctx, chantierID).Return(decimal.NewFromInt(50000), nil)
		f.materiel.On("CoutMateriel", ctx, chantierID).Return(decimal.NewFromInt(10000), nil)
		f.configs.On("FindByAnnee", ctx, mock.AnythingOfType("int")).Return(configWithCoeff(t, 12), nil)

		resp, err := f.service.GetEngagement(ctx, chantierID)
		require.NoError(t, err)

		assert.Equal(t, "160000", resp.TotalEngage.String())
		assert.Equal(t, "19200", resp.QuotePartFraisGeneraux.String())
		assert.Equal(t, "179200", resp.CoutDeRevient.String())
		assert.False(t, resp.Degraded)
	})

	t.Run("missing budget degrades to a zero snapshot", func(t *testing.T) {
		f := newLedgerFixture()
		f.budgets.On("FindByChantier", ctx, chantierID).Return(nil, shared.ErrBudgetNotFound)

		resp, err := f.service.GetEngagement(ctx, chantierID)
		require.NoError(t, err)

		assert.True(t, resp.Degraded)
		assert.True(t, resp.TotalEngage.IsZero())
		assert.True(t, resp.CoutDeRevient.IsZero())
		f.achats.AssertNotCalled(t, "SumMontantEngageByChantier", mock.Anything, mock.Anything)
	})

	t.Run("falls back to the latest fiscal year configuration", func(t *testing.T) {
		f := newLedgerFixture()
		f.budgets.On("FindByChantier", ctx, chantierID).Return(openBudget(t, chantierID, 1000000), nil)
		f.achats.On("SumMontantEngageByChantier", ctx, chantierID).Return(decimal.NewFromInt(1000), nil)
		f.mainOeuvre.On("CoutMainOeuvre", ctx, chantierID).Return(decimal.Zero, nil)
		f.materiel.On("CoutMateriel", ctx, chantierID).Return(decimal.Zero, nil)
		f.configs.On("FindByAnnee", ctx, mock.AnythingOfType("int")).Return(nil, shared.ErrNotFound)
		f.configs.On("FindLatest", ctx).Return(configWithCoeff(t, 12), nil)

		resp, err := f.service.GetEngagement(ctx, chantierID)
		require.NoError(t, err)
		assert.Equal(t, "120", resp.QuotePartFraisGeneraux.String())
	})
}

func TestLedgerService_RecomputeEngagement(t *testing.T) {
	ctx := context.Background()
	chantierID := uuid.New()

	t.Run("publishes the recompute event and re-evaluates the alert", func(t *testing.T) {
		f := newLedgerFixture()
		f.budgets.On("FindByChantier", ctx, chantierID).Return(openBudget(t, chantierID, 1000000), nil)
		f.achats.On("SumMontantEngageByChantier", ctx, chantierID).Return(decimal.NewFromInt(820000), nil)
		f.mainOeuvre.On("CoutMainOeuvre", ctx, chantierID).Return(decimal.Zero, nil)
		f.materiel.On("CoutMateriel", ctx, chantierID).Return(decimal.Zero, nil)
		f.configs.On("FindByAnnee", ctx, mock.AnythingOfType("int")).Return(configWithCoeff(t, 12), nil)
		f.publisher.On("Publish", ctx, mock.Anything).Return(nil)
		f.alerts.On("EvaluerBudget", ctx, chantierID,
			decimal.NewFromInt(820000), decimal.NewFromInt(1000000)).Return(nil)

		require.NoError(t, f.service.RecomputeEngagement(ctx, chantierID))
		f.publisher.AssertExpectations(t)
		f.alerts.AssertExpectations(t)
	})

	t.Run("degraded snapshot skips alert evaluation", func(t *testing.T) {
		f := newLedgerFixture()
		f.budgets.On("FindByChantier", ctx, chantierID).Return(nil, shared.ErrBudgetNotFound)
		f.publisher.On("Publish", ctx, mock.Anything).Return(nil)

		require.NoError(t, f.service.RecomputeEngagement(ctx, chantierID))
		f.alerts.AssertNotCalled(t, "EvaluerBudget", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestLedgerService_Creer(t *testing.T) {
	ctx := context.Background()
	chantierID := uuid.New()

	t.Run("creates the envelope with its lots", func(t *testing.T) {
		f := newLedgerFixture()
		f.chantierStatus.On("GetStatut", ctx, chantierID).Return(acl.StatutChantierEnCours, nil)
		f.budgets.On("Save", ctx, mock.AnythingOfType("*budget.Budget"), mock.AnythingOfType("*audit.LogEntry")).Return(nil)

		resp, err := f.service.Creer(ctx, CreateBudgetRequest{
			ChantierID:       chantierID,
			MontantInitialHT: decimal.NewFromInt(1000000),
			Lots: []CreateLotInput{
				{Designation: "Gros oeuvre", MontantHT: decimal.NewFromInt(600000)},
				{Designation: "Second oeuvre", MontantHT: decimal.NewFromInt(300000)},
			},
		})
		require.NoError(t, err)
		assert.Len(t, resp.Lots, 2)
		assert.Equal(t, "900000.00", resp.TotalLots.StringFixed(2))
		assert.False(t, resp.DepassementEnveloppe)
	})

	t.Run("audit entry rides in the same repository save", func(t *testing.T) {
		f := newLedgerFixture()
		actorID := uuid.New()
		f.chantierStatus.On("GetStatut", ctx, chantierID).Return(acl.StatutChantierEnCours, nil)

		var captured *audit.LogEntry
		f.budgets.On("Save", ctx, mock.AnythingOfType("*budget.Budget"), mock.AnythingOfType("*audit.LogEntry")).
			Run(func(args mock.Arguments) {
				captured = args.Get(2).(*audit.LogEntry)
			}).Return(nil)

		_, err := f.service.Creer(ctx, CreateBudgetRequest{
			ChantierID:       chantierID,
			MontantInitialHT: decimal.NewFromInt(1000000),
			ActorID:          &actorID,
		})
		require.NoError(t, err)

		require.NotNil(t, captured)
		assert.Equal(t, "Budget", captured.EntityType)
		assert.Equal(t, audit.ActionCreate, captured.Action)
		require.NotNil(t, captured.ActorID)
		assert.Equal(t, actorID, *captured.ActorID)
	})

	t.Run("failed save surfaces the error without a recompute", func(t *testing.T) {
		f := newLedgerFixture()
		f.chantierStatus.On("GetStatut", ctx, chantierID).Return(acl.StatutChantierEnCours, nil)
		f.budgets.On("Save", ctx, mock.Anything, mock.Anything).Return(assert.AnError)

		_, err := f.service.Creer(ctx, CreateBudgetRequest{
			ChantierID:       chantierID,
			MontantInitialHT: decimal.NewFromInt(1000000),
		})
		require.ErrorIs(t, err, assert.AnError)
		f.budgets.AssertNumberOfCalls(t, "Save", 1)
	})

	t.Run("refused on a closed chantier", func(t *testing.T) {
		f := newLedgerFixture()
		f.chantierStatus.On("GetStatut", ctx, chantierID).Return(acl.StatutChantierFerme, nil)

		_, err := f.service.Creer(ctx, CreateBudgetRequest{
			ChantierID:       chantierID,
			MontantInitialHT: decimal.NewFromInt(1000000),
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CHANTIER_FERME", domainErr.Code)
	})
}

func TestLedgerService_UpdateMontantInitial(t *testing.T) {
	ctx := context.Background()
	chantierID := uuid.New()

	t.Run("updating the envelope triggers a recompute", func(t *testing.T) {
		f := newLedgerFixture()
		b := openBudget(t, chantierID, 1000000)
		f.budgets.On("FindByChantier", ctx, chantierID).Return(b, nil)
		f.chantierStatus.On("GetStatut", ctx, chantierID).Return(acl.StatutChantierEnCours, nil)
		f.budgets.On("Save", ctx, b, mock.AnythingOfType("*audit.LogEntry")).Return(nil)
		f.achats.On("SumMontantEngageByChantier", ctx, chantierID).Return(decimal.NewFromInt(500000), nil)
		f.mainOeuvre.On("CoutMainOeuvre", ctx, chantierID).Return(decimal.Zero, nil)
		f.materiel.On("CoutMateriel", ctx, chantierID).Return(decimal.Zero, nil)
		f.configs.On("FindByAnnee", ctx, mock.AnythingOfType("int")).Return(configWithCoeff(t, 12), nil)
		f.publisher.On("Publish", ctx, mock.Anything).Return(nil)
		f.alerts.On("EvaluerBudget", ctx, chantierID, mock.Anything, mock.Anything).Return(nil)

		resp, err := f.service.UpdateMontantInitial(ctx, chantierID, UpdateMontantInitialRequest{
			MontantInitialHT: decimal.NewFromInt(800000),
		})
		require.NoError(t, err)
		assert.Equal(t, "800000.00", resp.MontantInitialHT.StringFixed(2))
		f.publisher.AssertExpectations(t)
	})
}
