// Package testutil provides deterministic fixtures shared by tests.
package testutil

import (
	"math/rand"
	"time"

	"github.com/tkoster/circulate/internal/ledger"
)

// FixedTime is the wall-clock instant used for CreatedAt/UpdatedAt in tests.
var FixedTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// Rec builds a record with the given seq, code and dates. An empty redeemed
// date leaves the record outstanding.
func Rec(seq int64, code, issued, redeemed string) ledger.Record {
	return ledger.Record{
		Seq:        seq,
		Code:       code,
		IssueDate:  issued,
		RedeemDate: redeemed,
		CreatedAt:  FixedTime,
	}
}

// Shuffled returns a copy of records permuted by a fixed seed, for asserting
// that derivations are independent of input order.
func Shuffled(records []ledger.Record, seed int64) []ledger.Record {
	out := make([]ledger.Record, len(records))
	copy(out, records)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
