package ledger

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SortKey selects the column a record list is sorted by.
type SortKey string

const (
	// SortByCode sorts by coupon code.
	SortByCode SortKey = "code"
	// SortByIssueDate sorts by issue date.
	SortByIssueDate SortKey = "issued"
	// SortByRedeemDate sorts by redeem date. Records that have not been
	// redeemed carry the empty string and sort before any real date.
	SortByRedeemDate SortKey = "redeemed"
)

// ValidSortKeys lists the accepted sort keys.
var ValidSortKeys = []SortKey{SortByCode, SortByIssueDate, SortByRedeemDate}

// SortState tracks the active sort column and direction for an interactive
// record listing.
type SortState struct {
	Key  SortKey
	Desc bool
}

// Toggle applies a selection of key: selecting the active key flips the
// direction, selecting a new key resets to ascending.
func (s *SortState) Toggle(key SortKey) {
	if s.Key == key {
		s.Desc = !s.Desc
		return
	}
	s.Key = key
	s.Desc = false
}

// Search returns the records whose code or remarks contain term,
// case-insensitively, preserving input order. An empty term matches
// everything.
func Search(records []Record, term string) []Record {
	term = foldForSearch(term)
	if term == "" {
		return copyRecords(records)
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if strings.Contains(foldForSearch(r.Code), term) ||
			strings.Contains(foldForSearch(r.Remarks), term) {
			out = append(out, r)
		}
	}
	return out
}

// Sort returns a stably sorted copy of records. Comparison is plain string
// comparison on the selected column; ties keep their input order. An empty
// key returns the records unsorted.
func Sort(records []Record, key SortKey, desc bool) []Record {
	out := copyRecords(records)
	if key == "" {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := sortValue(out[i], key), sortValue(out[j], key)
		if desc {
			return a > b
		}
		return a < b
	})
	return out
}

func sortValue(r Record, key SortKey) string {
	switch key {
	case SortByIssueDate:
		return r.IssueDate
	case SortByRedeemDate:
		return r.RedeemDate
	default:
		return NormalizeCode(r.Code)
	}
}

// foldForSearch canonicalizes a string for case-insensitive matching.
func foldForSearch(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}
