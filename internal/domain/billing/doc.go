// Package billing provides domain models for progress billing on construction
// sites (chantiers).
//
// This package implements the client billing bounded context, which is
// responsible for:
//   - Recording situations de travaux (cumulative progress statements)
//   - Issuing client invoices from situations, with retenue de garantie
//   - Tracking the invoice lifecycle (EMISE, PAYEE, ANNULEE)
//
// Key Aggregates:
//   - SituationTravaux: Progress statement, numbered sequentially per chantier
//   - FactureClient: Client invoice derived from a single situation
//
// The billing domain integrates with:
//   - Shared ACL: chantier state gates every write operation
//   - Costing domain: invoiced amounts feed margin computation
package billing
