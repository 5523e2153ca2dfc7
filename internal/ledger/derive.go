package ledger

import "sort"

// Status is the derived circulation state of a coupon code.
type Status int

const (
	// StatusNone means the code has no records at all.
	StatusNone Status = iota
	// StatusOutstanding means the latest record is issued but not redeemed:
	// the physical coupon is in circulation.
	StatusOutstanding
	// StatusAvailable means the latest record has been redeemed: the code is
	// eligible for reissuance.
	StatusAvailable
)

// String returns the human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusOutstanding:
		return "outstanding"
	case StatusAvailable:
		return "available"
	default:
		return "none"
	}
}

// Latest returns the record with the greatest Seq among records carrying
// code, and whether any matched. Sequence numbers are unique by
// construction; should duplicates ever appear, the later list element wins,
// so the result is still well-defined.
func Latest(records []Record, code string) (Record, bool) {
	code = NormalizeCode(code)
	var latest Record
	found := false
	for _, r := range records {
		if NormalizeCode(r.Code) != code {
			continue
		}
		if !found || r.Seq >= latest.Seq {
			latest = r
			found = true
		}
	}
	return latest, found
}

// StatusOf derives the current status of a coupon code from the full record
// list. The result depends only on the set of (code, seq, dates) tuples, not
// on list order.
func StatusOf(records []Record, code string) Status {
	latest, ok := Latest(records, code)
	switch {
	case !ok:
		return StatusNone
	case latest.Outstanding():
		return StatusOutstanding
	case latest.Redeemed():
		return StatusAvailable
	default:
		// Issued date cleared by a manual edit: the code exists but is
		// neither in circulation nor eligible for quick issue.
		return StatusNone
	}
}

// AvailableCodes returns the lexically sorted set of codes whose latest
// record has been redeemed. A code that has never been issued has no records
// and therefore never appears; new codes enter through manual entry.
func AvailableCodes(records []Record) []string {
	return codesWithStatus(records, StatusAvailable)
}

// OutstandingCodes returns the lexically sorted set of codes currently in
// circulation.
func OutstandingCodes(records []Record) []string {
	return codesWithStatus(records, StatusOutstanding)
}

// latestByCode groups the record list by normalized code and keeps the
// latest record per group.
func latestByCode(records []Record) map[string]Record {
	latest := make(map[string]Record)
	for _, r := range records {
		code := NormalizeCode(r.Code)
		if cur, ok := latest[code]; !ok || r.Seq >= cur.Seq {
			latest[code] = r
		}
	}
	return latest
}

func codesWithStatus(records []Record, want Status) []string {
	codes := make([]string, 0)
	for code, latest := range latestByCode(records) {
		var got Status
		switch {
		case latest.Outstanding():
			got = StatusOutstanding
		case latest.Redeemed():
			got = StatusAvailable
		default:
			got = StatusNone
		}
		if got == want {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes
}

// History returns every record for code ordered by Seq ascending.
func History(records []Record, code string) []Record {
	code = NormalizeCode(code)
	out := make([]Record, 0)
	for _, r := range records {
		if NormalizeCode(r.Code) == code {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}
