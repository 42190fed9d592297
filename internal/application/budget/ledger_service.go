package budget

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chantier/backend/internal/domain/audit"
	"github.com/chantier/backend/internal/domain/budget"
	"github.com/chantier/backend/internal/domain/company"
	"github.com/chantier/backend/internal/domain/costing"
	"github.com/chantier/backend/internal/domain/shared"
	"github.com/chantier/backend/internal/domain/shared/acl"
)

// TotalAchatsProvider supplies the committed purchase total of a chantier,
// fresh from the source rows. Satisfied by purchasing.AchatRepository.
type TotalAchatsProvider interface {
	SumMontantEngageByChantier(ctx context.Context, chantierID uuid.UUID) (decimal.Decimal, error)
}

// AlertEvaluator re-evaluates the budget alert of a chantier after a ledger
// recomputation. Implemented by the alerting application service.
type AlertEvaluator interface {
	EvaluerBudget(ctx context.Context, chantierID uuid.UUID, totalEngage, montantInitial decimal.Decimal) error
}

// LedgerService owns the budget envelope of a chantier and the committed-cost
// ledger derived from it. Every recomputation re-aggregates from source
// records; nothing is maintained incrementally.
type LedgerService struct {
	budgetRepo     budget.BudgetRepository
	achatTotals    TotalAchatsProvider
	mainOeuvre     budget.CoutMainOeuvreProvider
	materiel       budget.CoutMaterielProvider
	configRepo     company.ConfigurationRepository
	chantierStatus acl.ChantierStatusService
	eventPublisher shared.EventPublisher
	alertEvaluator AlertEvaluator
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	budgetRepo budget.BudgetRepository,
	achatTotals TotalAchatsProvider,
	mainOeuvre budget.CoutMainOeuvreProvider,
	materiel budget.CoutMaterielProvider,
	configRepo company.ConfigurationRepository,
	chantierStatus acl.ChantierStatusService,
) *LedgerService {
	return &LedgerService{
		budgetRepo:     budgetRepo,
		achatTotals:    achatTotals,
		mainOeuvre:     mainOeuvre,
		materiel:       materiel,
		configRepo:     configRepo,
		chantierStatus: chantierStatus,
	}
}

// SetEventPublisher sets the event publisher for recompute notifications
func (s *LedgerService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetAlertEvaluator wires the budget alert evaluation trigger
func (s *LedgerService) SetAlertEvaluator(evaluator AlertEvaluator) {
	s.alertEvaluator = evaluator
}

// Creer creates the budget envelope of a chantier
func (s *LedgerService) Creer(ctx context.Context, req CreateBudgetRequest) (*BudgetResponse, error) {
	if err := acl.VerifierChantierOuvert(ctx, s.chantierStatus, req.ChantierID); err != nil {
		return nil, err
	}

	b, err := budget.NewBudget(req.ChantierID, req.MontantInitialHT, req.DevisID)
	if err != nil {
		return nil, err
	}
	for _, lot := range req.Lots {
		if _, err := b.AddLot(lot.Designation, lot.MontantHT); err != nil {
			return nil, err
		}
	}
	if req.ActorID != nil {
		b.SetCreatedBy(*req.ActorID)
	}

	if err := s.saveAndAudit(ctx, b, req.ActorID, audit.ActionCreate, nil); err != nil {
		return nil, err
	}

	response := ToBudgetResponse(b)
	return &response, nil
}

// GetByChantier retrieves the budget of a chantier
func (s *LedgerService) GetByChantier(ctx context.Context, chantierID uuid.UUID) (*BudgetResponse, error) {
	b, err := s.budgetRepo.FindByChantier(ctx, chantierID)
	if err != nil {
		return nil, err
	}
	response := ToBudgetResponse(b)
	return &response, nil
}

// AddLot adds a line item to the budget. Overrunning the envelope is allowed;
// the overrun surfaces through alerts.
func (s *LedgerService) AddLot(ctx context.Context, chantierID uuid.UUID, req AddLotRequest) (*BudgetResponse, error) {
	b, err := s.budgetRepo.FindByChantier(ctx, chantierID)
	if err != nil {
		return nil, err
	}
	if err := acl.VerifierChantierOuvert(ctx, s.chantierStatus, b.ChantierID); err != nil {
		return nil, err
	}

	old := budgetAuditValues(b)
	if _, err := b.AddLot(req.Designation, req.MontantHT); err != nil {
		return nil, err
	}

	if err := s.saveAndAudit(ctx, b, req.ActorID, audit.ActionUpdate, old); err != nil {
		return nil, err
	}

	response := ToBudgetResponse(b)
	return &response, nil
}

// RemoveLot removes a line item from the budget
func (s *LedgerService) RemoveLot(ctx context.Context, chantierID, lotID uuid.UUID, actorID *uuid.UUID) (*BudgetResponse, error) {
	b, err := s.budgetRepo.FindByChantier(ctx, chantierID)
	if err != nil {
		return nil, err
	}
	if err := acl.VerifierChantierOuvert(ctx, s.chantierStatus, b.ChantierID); err != nil {
		return nil, err
	}

	old := budgetAuditValues(b)
	if err := b.RemoveLot(lotID); err != nil {
		return nil, err
	}

	if err := s.saveAndAudit(ctx, b, actorID, audit.ActionUpdate, old); err != nil {
		return nil, err
	}

	response := ToBudgetResponse(b)
	return &response, nil
}

// UpdateMontantInitial updates the envelope amount and re-evaluates the ledger
func (s *LedgerService) UpdateMontantInitial(ctx context.Context, chantierID uuid.UUID, req UpdateMontantInitialRequest) (*BudgetResponse, error) {
	b, err := s.budgetRepo.FindByChantier(ctx, chantierID)
	if err != nil {
		return nil, err
	}
	if err := acl.VerifierChantierOuvert(ctx, s.chantierStatus, b.ChantierID); err != nil {
		return nil, err
	}

	old := budgetAuditValues(b)
	if err := b.UpdateMontantInitial(req.MontantInitialHT); err != nil {
		return nil, err
	}

	if err := s.saveAndAudit(ctx, b, req.ActorID, audit.ActionUpdate, old); err != nil {
		return nil, err
	}

	// The thresholds move with the envelope
	if err := s.RecomputeEngagement(ctx, chantierID); err != nil {
		return nil, err
	}

	response := ToBudgetResponse(b)
	return &response, nil
}

// GetEngagement computes the committed-cost snapshot of a chantier.
// A chantier without a budget yields a zero-valued degraded snapshot.
func (s *LedgerService) GetEngagement(ctx context.Context, chantierID uuid.UUID) (*EngagementResponse, error) {
	snapshot, err := s.computeSnapshot(ctx, chantierID)
	if err != nil {
		return nil, err
	}
	response := ToEngagementResponse(snapshot)
	return &response, nil
}

// Snapshot computes the committed-cost snapshot of a chantier as a domain
// value, for callers outside this package
func (s *LedgerService) Snapshot(ctx context.Context, chantierID uuid.UUID) (budget.EngagementSnapshot, error) {
	return s.computeSnapshot(ctx, chantierID)
}

// RecomputeEngagement re-aggregates the ledger of a chantier, publishes the
// recompute event and re-evaluates the budget alert
func (s *LedgerService) RecomputeEngagement(ctx context.Context, chantierID uuid.UUID) error {
	snapshot, err := s.computeSnapshot(ctx, chantierID)
	if err != nil {
		return err
	}

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, budget.NewEngagementRecomputeEvent(snapshot)); err != nil {
			return err
		}
	}

	if s.alertEvaluator != nil && !snapshot.Degraded {
		if err := s.alertEvaluator.EvaluerBudget(ctx, chantierID, snapshot.TotalEngage, snapshot.MontantInitialHT); err != nil {
			return err
		}
	}

	return nil
}

func (s *LedgerService) computeSnapshot(ctx context.Context, chantierID uuid.UUID) (budget.EngagementSnapshot, error) {
	b, err := s.budgetRepo.FindByChantier(ctx, chantierID)
	if err != nil {
		if errors.Is(err, shared.ErrBudgetNotFound) {
			return budget.DegradedSnapshot(chantierID), nil
		}
		return budget.EngagementSnapshot{}, err
	}

	totalAchats, err := s.achatTotals.SumMontantEngageByChantier(ctx, chantierID)
	if err != nil {
		return budget.EngagementSnapshot{}, err
	}
	coutMO, err := s.mainOeuvre.CoutMainOeuvre(ctx, chantierID)
	if err != nil {
		return budget.EngagementSnapshot{}, err
	}
	coutMat, err := s.materiel.CoutMateriel(ctx, chantierID)
	if err != nil {
		return budget.EngagementSnapshot{}, err
	}

	coeff, err := s.coeffFraisGeneraux(ctx)
	if err != nil {
		return budget.EngagementSnapshot{}, err
	}

	totalEngage := totalAchats.Add(coutMO).Add(coutMat)

	return budget.EngagementSnapshot{
		ChantierID:             chantierID,
		MontantInitialHT:       b.MontantInitialHT,
		TotalAchats:            totalAchats,
		CoutMainOeuvre:         coutMO,
		CoutMateriel:           coutMat,
		TotalEngage:            totalEngage,
		QuotePartFraisGeneraux: costing.CalculerQuotePartFraisGeneraux(totalEngage, coeff),
		CoutDeRevient:          costing.CalculerCoutDeRevient(totalEngage, coeff),
		ComputedAt:             time.Now(),
	}, nil
}

// coeffFraisGeneraux resolves the overhead coefficient from the current
// fiscal year, falling back to the latest configured year, then to zero
func (s *LedgerService) coeffFraisGeneraux(ctx context.Context) (decimal.Decimal, error) {
	config, err := s.configRepo.FindByAnnee(ctx, time.Now().Year())
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return decimal.Zero, err
		}
		config, err = s.configRepo.FindLatest(ctx)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return decimal.Zero, nil
			}
			return decimal.Zero, err
		}
	}
	return config.CoeffFraisGeneraux, nil
}

// saveAndAudit persists the budget and its audit entry in one repository
// transaction
func (s *LedgerService) saveAndAudit(ctx context.Context, b *budget.Budget, actorID *uuid.UUID, action string, old audit.Values) error {
	entry, err := audit.NewLogEntry("Budget", b.ID, action, old, budgetAuditValues(b), actorID)
	if err != nil {
		return err
	}
	return s.budgetRepo.Save(ctx, b, entry)
}

// budgetAuditValues flattens the audited fields of a budget
func budgetAuditValues(b *budget.Budget) audit.Values {
	values := audit.Values{
		"chantier_id":        b.ChantierID.String(),
		"montant_initial_ht": b.MontantInitialHT.String(),
		"total_lots":         b.TotalLots().String(),
		"nb_lots":            len(b.Lots),
	}
	if b.DevisID != nil {
		values["devis_id"] = b.DevisID.String()
	}
	return values
}
