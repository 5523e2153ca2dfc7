package ledger

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// DateLayout is the calendar date format used by issue and redeem dates.
// Dates are stored as plain strings so that ordering is string ordering,
// with the empty string (no redeem date) sorting before any real date.
const DateLayout = "2006-01-02"

// Record is a single issuance/redemption event for a physical coupon code.
// Many records share a code over the code's lifetime; the record set as a
// whole is the single source of truth.
//
// Seq is an explicit monotonic sequence number assigned at creation. It is
// both the record's unique identity and its recency rank - the greatest Seq
// for a code marks the latest record. JSON field names match the wire shape
// used by the realtime backend.
type Record struct {
	Seq        int64     `json:"seq"`
	Code       string    `json:"couponCode"`
	IssueDate  string    `json:"issueDate"`
	RedeemDate string    `json:"redeemDate,omitempty"`
	Remarks    string    `json:"remarks,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty"`
}

// Redeemed reports whether this record has been redeemed.
func (r Record) Redeemed() bool {
	return r.RedeemDate != ""
}

// Outstanding reports whether this record represents an open issuance:
// issued but not yet redeemed.
func (r Record) Outstanding() bool {
	return r.IssueDate != "" && r.RedeemDate == ""
}

// NormalizeCode canonicalizes a coupon code for comparison and storage.
// Codes are trimmed and NFC-normalized so that visually identical codes
// entered on different platforms compare equal.
func NormalizeCode(code string) string {
	return norm.NFC.String(strings.TrimSpace(code))
}

// ValidDate reports whether s is a well-formed calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// MaxSeq returns the greatest sequence number in the record list, or 0 for
// an empty list. Used to seed the clock from a loaded snapshot.
func MaxSeq(records []Record) int64 {
	var max int64
	for _, r := range records {
		if r.Seq > max {
			max = r.Seq
		}
	}
	return max
}
