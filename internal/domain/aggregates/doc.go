// Package aggregates defines domain-facing aggregate contracts.
//
// These contracts avoid persistence/transport details and mark the write
// boundaries where invariants (one open session, one completion, score equals
// the sum of live ledger entries) must be enforced atomically.
package aggregates
