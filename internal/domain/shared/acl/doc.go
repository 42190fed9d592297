// Package acl provides the Anti-Corruption Layer between the ledger's
// bounded contexts and the chantier management system that owns the
// Chantier and Devis aggregates.
//
// The ledger never loads those aggregates: it holds typed references
// (ChantierRef, DevisRef) and queries the owning system through the
// ChantierStatusService port. Chantier lifecycle is the one piece of
// remote state the ledger acts on, since every financial mutation is
// refused once a chantier is closed.
package acl
