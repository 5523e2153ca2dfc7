// Package ledger implements the coupon circulation engine.
//
// The ledger is an append-style log of issuance and redemption records.
// Every function here is a pure function of the full record list: status
// derivation, transition validation, and the command constructors that
// produce a new record list without touching the old one. Persistence and
// transport live elsewhere; the ledger never performs I/O.
//
// The authoritative rule: among all records sharing a coupon code, the
// record with the greatest Seq is the latest and solely determines the
// code's current status.
package ledger
