package purchasing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chantier/backend/internal/domain/shared"
	"github.com/chantier/backend/internal/domain/shared/valueobject"
)

func newAchatDemande(t *testing.T, typeAchat TypeAchat, taux *valueobject.VatRate) *Achat {
	t.Helper()
	achat, err := NewAchat(uuid.New(), "AC-2026-00001", typeAchat, "Beton C25/30",
		decimal.NewFromInt(10), decimal.NewFromFloat(85.50), taux)
	require.NoError(t, err)
	return achat
}

func vatPtr(t *testing.T, rate string) *valueobject.VatRate {
	t.Helper()
	v, err := valueobject.NewVatRateFromString(rate)
	require.NoError(t, err)
	return &v
}

func newFournisseur(t *testing.T, typeFournisseur FournisseurType) *Fournisseur {
	t.Helper()
	f, err := NewFournisseur("Point P Agence Lyon", typeFournisseur)
	require.NoError(t, err)
	return f
}

func TestNewAchat(t *testing.T) {
	t.Run("creates purchase in DEMANDE with computed amount", func(t *testing.T) {
		achat := newAchatDemande(t, TypeAchatMateriaux, vatPtr(t, "20"))

		assert.Equal(t, StatutAchatDemande, achat.Statut)
		assert.Equal(t, "855", achat.MontantHT.String())
		assert.Equal(t, 1, achat.GetVersion())
		require.Len(t, achat.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeAchatCreated, achat.GetDomainEvents()[0].EventType())
	})

	t.Run("VAT rate may be omitted in DEMANDE", func(t *testing.T) {
		achat, err := NewAchat(uuid.New(), "AC-2026-00002", TypeAchatMateriaux, "Sable 0/4",
			decimal.NewFromInt(3), decimal.NewFromInt(40), nil)
		require.NoError(t, err)
		assert.Nil(t, achat.TauxTVA)
	})

	t.Run("rejects missing chantier", func(t *testing.T) {
		_, err := NewAchat(uuid.Nil, "AC-2026-00003", TypeAchatMateriaux, "Sable",
			decimal.NewFromInt(1), decimal.NewFromInt(10), nil)
		assert.Error(t, err)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := NewAchat(uuid.New(), "AC-2026-00004", TypeAchatMateriaux, "Sable",
			decimal.Zero, decimal.NewFromInt(10), nil)
		assert.Error(t, err)
	})

	t.Run("rejects negative unit price", func(t *testing.T) {
		_, err := NewAchat(uuid.New(), "AC-2026-00005", TypeAchatMateriaux, "Sable",
			decimal.NewFromInt(1), decimal.NewFromInt(-10), nil)
		assert.Error(t, err)
	})

	t.Run("subcontracted purchase with non-zero VAT is rejected before persistence", func(t *testing.T) {
		_, err := NewAchat(uuid.New(), "AC-2026-00006", TypeAchatSousTraitance, "Lot plomberie",
			decimal.NewFromInt(1), decimal.NewFromInt(12000), vatPtr(t, "20"))
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.ErrCodeAchatValidation, domainErr.Code)
	})

	t.Run("subcontracted purchase with zero VAT is accepted", func(t *testing.T) {
		achat, err := NewAchat(uuid.New(), "AC-2026-00007", TypeAchatSousTraitance, "Lot plomberie",
			decimal.NewFromInt(1), decimal.NewFromInt(12000), vatPtr(t, "0"))
		require.NoError(t, err)
		assert.True(t, achat.EstAutoliquide())
	})
}

func TestStatutAchat_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from    StatutAchat
		to      StatutAchat
		allowed bool
	}{
		{StatutAchatDemande, StatutAchatCommande, true},
		{StatutAchatCommande, StatutAchatLivre, true},
		{StatutAchatLivre, StatutAchatFacture, true},
		{StatutAchatFacture, StatutAchatPaye, true},
		{StatutAchatDemande, StatutAchatLivre, false},
		{StatutAchatDemande, StatutAchatPaye, false},
		{StatutAchatCommande, StatutAchatFacture, false},
		{StatutAchatLivre, StatutAchatPaye, false},
		{StatutAchatPaye, StatutAchatDemande, false},
		{StatutAchatDemande, StatutAchatAnnule, true},
		{StatutAchatCommande, StatutAchatAnnule, true},
		{StatutAchatLivre, StatutAchatAnnule, true},
		{StatutAchatFacture, StatutAchatAnnule, true},
		{StatutAchatPaye, StatutAchatAnnule, false},
		{StatutAchatAnnule, StatutAchatDemande, false},
		{StatutAchatAnnule, StatutAchatAnnule, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestAchat_FullLifecycle(t *testing.T) {
	achat := newAchatDemande(t, TypeAchatMateriaux, vatPtr(t, "20"))
	fournisseur := newFournisseur(t, FournisseurTypeNegoceMateriaux)
	dateCommande := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	require.NoError(t, achat.ConfirmerCommande(fournisseur, dateCommande))
	assert.Equal(t, StatutAchatCommande, achat.Statut)
	assert.Equal(t, &fournisseur.ID, achat.FournisseurID)

	require.NoError(t, achat.MarquerLivre(dateCommande.AddDate(0, 0, 7)))
	assert.Equal(t, StatutAchatLivre, achat.Statut)

	require.NoError(t, achat.MarquerFacture(dateCommande.AddDate(0, 0, 14)))
	assert.Equal(t, StatutAchatFacture, achat.Statut)

	require.NoError(t, achat.MarquerPaye(dateCommande.AddDate(0, 1, 0)))
	assert.Equal(t, StatutAchatPaye, achat.Statut)
	assert.True(t, achat.Statut.EstTerminal())

	// One created event plus one per transition
	assert.Len(t, achat.GetDomainEvents(), 5)
}

func TestAchat_OutOfOrderTransitions(t *testing.T) {
	t.Run("DEMANDE cannot skip to LIVRE", func(t *testing.T) {
		achat := newAchatDemande(t, TypeAchatMateriaux, vatPtr(t, "20"))
		err := achat.MarquerLivre(time.Now())
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.ErrCodeTransitionInvalide, domainErr.Code)
		assert.Contains(t, domainErr.Message, "DEMANDE")
		assert.Contains(t, domainErr.Message, "LIVRE")
	})

	t.Run("COMMANDE cannot skip to PAYE", func(t *testing.T) {
		achat := newAchatDemande(t, TypeAchatMateriaux, vatPtr(t, "20"))
		require.NoError(t, achat.ConfirmerCommande(newFournisseur(t, FournisseurTypeNegoceMateriaux), time.Now()))

		err := achat.MarquerPaye(time.Now())
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.ErrCodeTransitionInvalide, domainErr.Code)
	})

	t.Run("confirming twice fails", func(t *testing.T) {
		achat := newAchatDemande(t, TypeAchatMateriaux, vatPtr(t, "20"))
		fournisseur := newFournisseur(t, FournisseurTypeNegoceMateriaux)
		require.NoError(t, achat.ConfirmerCommande(fournisseur, time.Now()))
		assert.Error(t, achat.ConfirmerCommande(fournisseur, time.Now()))
	})
}

func TestAchat_ConfirmerCommande(t *testing.T) {
	t.Run("requires a supplier", func(t *testing.T) {
		achat := newAchatDemande(t, TypeAchatMateriaux, vatPtr(t, "20"))
		err := achat.ConfirmerCommande(nil, time.Now())
		require.Error(t, err)
		assert.Equal(t, StatutAchatDemande, achat.Statut)
	})

	t.Run("requires an order date", func(t *testing.T) {
		achat := newAchatDemande(t, TypeAchatMateriaux, vatPtr(t, "20"))
		err := achat.ConfirmerCommande(newFournisseur(t, FournisseurTypeNegoceMateriaux), time.Time{})
		assert.Error(t, err)
	})

	t.Run("requires a VAT rate", func(t *testing.T) {
		achat, err := NewAchat(uuid.New(), "AC-2026-00010", TypeAchatMateriaux, "Sable",
			decimal.NewFromInt(1), decimal.NewFromInt(10), nil)
		require.NoError(t, err)

		err = achat.ConfirmerCommande(newFournisseur(t, FournisseurTypeNegoceMateriaux), time.Now())
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.ErrCodeAchatValidation, domainErr.Code)
	})

	t.Run("rejects expected delivery before order date", func(t *testing.T) {
		achat := newAchatDemande(t, TypeAchatMateriaux, vatPtr(t, "20"))
		dateCommande := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
		require.NoError(t, achat.DefinirDateLivraisonPrevue(dateCommande.AddDate(0, 0, -5)))

		err := achat.ConfirmerCommande(newFournisseur(t, FournisseurTypeNegoceMateriaux), dateCommande)
		assert.Error(t, err)
		assert.Equal(t, StatutAchatDemande, achat.Statut)
	})

	t.Run("subcontractor supplier forces zero VAT even on a materials purchase", func(t *testing.T) {
		achat := newAchatDemande(t, TypeAchatMateriaux, vatPtr(t, "10"))
		err := achat.ConfirmerCommande(newFournisseur(t, FournisseurTypeSousTraitant), time.Now())
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.ErrCodeAchatValidation, domainErr.Code)
		assert.Equal(t, StatutAchatDemande, achat.Statut)
		assert.False(t, achat.FournisseurSousTraitant)
	})
}

func TestAchat_Annuler(t *testing.T) {
	t.Run("legal from any non-terminal status", func(t *testing.T) {
		achat := newAchatDemande(t, TypeAchatMateriaux, vatPtr(t, "20"))
		require.NoError(t, achat.ConfirmerCommande(newFournisseur(t, FournisseurTypeNegoceMateriaux), time.Now()))
		require.NoError(t, achat.MarquerLivre(time.Now()))

		require.NoError(t, achat.Annuler("Chantier suspendu"))
		assert.Equal(t, StatutAchatAnnule, achat.Statut)
		assert.Equal(t, "Chantier suspendu", achat.MotifAnnulation)
		assert.NotNil(t, achat.AnnuleLe)
	})

	t.Run("rejected from PAYE", func(t *testing.T) {
		achat := newAchatDemande(t, TypeAchatMateriaux, vatPtr(t, "20"))
		require.NoError(t, achat.ConfirmerCommande(newFournisseur(t, FournisseurTypeNegoceMateriaux), time.Now()))
		require.NoError(t, achat.MarquerLivre(time.Now()))
		require.NoError(t, achat.MarquerFacture(time.Now()))
		require.NoError(t, achat.MarquerPaye(time.Now()))

		assert.Error(t, achat.Annuler("trop tard"))
	})
}

func TestAchat_DefinirTauxTVA(t *testing.T) {
	t.Run("replaces the rate while in DEMANDE", func(t *testing.T) {
		achat := newAchatDemande(t, TypeAchatMateriaux, vatPtr(t, "20"))
		require.NoError(t, achat.DefinirTauxTVA(valueobject.VatRateIntermediaire))
		assert.True(t, achat.TauxTVA.Equal(valueobject.VatRateIntermediaire))
	})

	t.Run("autoliquidation violation restores the previous rate", func(t *testing.T) {
		achat := newAchatDemande(t, TypeAchatSousTraitance, vatPtr(t, "0"))
		err := achat.DefinirTauxTVA(valueobject.VatRateNormale)
		require.Error(t, err)
		assert.True(t, achat.TauxTVA.IsAutoliquidation())
	})

	t.Run("rejected once invoiced", func(t *testing.T) {
		achat := newAchatDemande(t, TypeAchatMateriaux, vatPtr(t, "20"))
		require.NoError(t, achat.ConfirmerCommande(newFournisseur(t, FournisseurTypeNegoceMateriaux), time.Now()))
		require.NoError(t, achat.MarquerLivre(time.Now()))
		require.NoError(t, achat.MarquerFacture(time.Now()))

		assert.Error(t, achat.DefinirTauxTVA(valueobject.VatRateReduite))
	})
}

// The autoliquidation invariant must hold after any successful sequence of
// transitions on a subcontracted purchase.
func TestAchat_AutoliquidationInvariantOverTransitions(t *testing.T) {
	sequences := [][]func(a *Achat, f *Fournisseur) error{
		{
			func(a *Achat, f *Fournisseur) error { return a.ConfirmerCommande(f, time.Now()) },
		},
		{
			func(a *Achat, f *Fournisseur) error { return a.ConfirmerCommande(f, time.Now()) },
			func(a *Achat, _ *Fournisseur) error { return a.MarquerLivre(time.Now()) },
			func(a *Achat, _ *Fournisseur) error { return a.MarquerFacture(time.Now()) },
			func(a *Achat, _ *Fournisseur) error { return a.MarquerPaye(time.Now()) },
		},
		{
			func(a *Achat, f *Fournisseur) error { return a.ConfirmerCommande(f, time.Now()) },
			func(a *Achat, _ *Fournisseur) error { return a.MarquerLivre(time.Now()) },
			func(a *Achat, _ *Fournisseur) error { return a.Annuler("resiliation") },
		},
	}

	for i, seq := range sequences {
		achat, err := NewAchat(uuid.New(), "AC-2026-10000", TypeAchatSousTraitance, "Lot gros oeuvre",
			decimal.NewFromInt(1), decimal.NewFromInt(50000), vatPtr(t, "0"))
		require.NoError(t, err)
		fournisseur := newFournisseur(t, FournisseurTypeSousTraitant)

		for _, step := range seq {
			require.NoError(t, step(achat, fournisseur), "sequence %d", i)
			require.NotNil(t, achat.TauxTVA)
			assert.True(t, achat.TauxTVA.IsAutoliquidation(),
				"sequence %d: subcontracted purchase must keep a 0%% rate", i)
		}
	}
}

func TestAchat_Montants(t *testing.T) {
	achat := newAchatDemande(t, TypeAchatMateriaux, vatPtr(t, "20"))

	assert.Equal(t, "855", achat.MontantHT.String())
	assert.Equal(t, "171", achat.MontantTVA().String())
	assert.Equal(t, "1026", achat.MontantTTC().String())
	assert.Equal(t, valueobject.EUR, achat.MontantHTMoney().Currency())
}

func TestNewFournisseur(t *testing.T) {
	t.Run("valid supplier", func(t *testing.T) {
		f, err := NewFournisseur("SARL Batisseurs Reunis", FournisseurTypeSousTraitant)
		require.NoError(t, err)
		assert.True(t, f.EstSousTraitant())
		assert.True(t, f.Actif)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewFournisseur("", FournisseurTypeLoueur)
		assert.Error(t, err)
	})

	t.Run("rejects unknown category", func(t *testing.T) {
		_, err := NewFournisseur("X", FournisseurType("GROSSISTE"))
		assert.Error(t, err)
	})

	t.Run("only SOUS_TRAITANT is a subcontractor", func(t *testing.T) {
		for _, typ := range []FournisseurType{FournisseurTypeNegoceMateriaux, FournisseurTypeLoueur, FournisseurTypeService} {
			assert.False(t, typ.EstSousTraitant(), "%s", typ)
		}
		assert.True(t, FournisseurTypeSousTraitant.EstSousTraitant())
	})
}
