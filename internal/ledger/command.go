package ledger

import "time"

// RecordInput carries the user-editable fields of a record. Commands
// normalize the code and validate dates before constructing records.
type RecordInput struct {
	Code       string
	IssueDate  string
	RedeemDate string
	Remarks    string
}

// Commands are pure: each takes the current full record list and returns a
// new full list on success, or a *CommandError with the input list untouched.
// Callers persist the returned list with a full-set replace write; the
// store's subsequent push makes it the authoritative snapshot.

// CreateManual appends a manually entered record. This is the only path that
// can introduce a brand-new coupon code into the ledger.
func CreateManual(records []Record, clock *Clock, in RecordInput, now time.Time) ([]Record, error) {
	in.Code = NormalizeCode(in.Code)
	if in.Code == "" {
		return nil, NewMissingFieldError("couponCode")
	}
	if in.IssueDate == "" {
		return nil, NewMissingFieldError("issueDate")
	}
	if !ValidDate(in.IssueDate) {
		return nil, NewBadDateError("issueDate", in.IssueDate)
	}
	if in.RedeemDate != "" && !ValidDate(in.RedeemDate) {
		return nil, NewBadDateError("redeemDate", in.RedeemDate)
	}

	next := append(copyRecords(records), Record{
		Seq:        clock.Next(),
		Code:       in.Code,
		IssueDate:  in.IssueDate,
		RedeemDate: in.RedeemDate,
		Remarks:    in.Remarks,
		CreatedAt:  now,
	})
	return next, nil
}

// UpdateManual replaces the fields of the record with the given seq, keeping
// Seq and CreatedAt. Any field except the sequence number may be rewritten.
func UpdateManual(records []Record, seq int64, in RecordInput, now time.Time) ([]Record, error) {
	in.Code = NormalizeCode(in.Code)
	if in.Code == "" {
		return nil, NewMissingFieldError("couponCode")
	}
	if in.IssueDate == "" {
		return nil, NewMissingFieldError("issueDate")
	}
	if !ValidDate(in.IssueDate) {
		return nil, NewBadDateError("issueDate", in.IssueDate)
	}
	if in.RedeemDate != "" && !ValidDate(in.RedeemDate) {
		return nil, NewBadDateError("redeemDate", in.RedeemDate)
	}

	next := copyRecords(records)
	for i := range next {
		if next[i].Seq != seq {
			continue
		}
		next[i].Code = in.Code
		next[i].IssueDate = in.IssueDate
		next[i].RedeemDate = in.RedeemDate
		next[i].Remarks = in.Remarks
		next[i].UpdatedAt = now
		return next, nil
	}
	return nil, NewNoSuchRecordError(seq)
}

// Issue appends a new open record for a code that is currently available.
// Issuing a code whose latest record is still outstanding fails: a physical
// coupon cannot be handed out twice.
func Issue(records []Record, clock *Clock, code, issueDate, remarks string, now time.Time) ([]Record, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, NewMissingFieldError("couponCode")
	}
	if issueDate == "" {
		return nil, NewMissingFieldError("issueDate")
	}
	if !ValidDate(issueDate) {
		return nil, NewBadDateError("issueDate", issueDate)
	}
	if StatusOf(records, code) != StatusAvailable {
		return nil, NewNotAvailableError(code)
	}

	next := append(copyRecords(records), Record{
		Seq:       clock.Next(),
		Code:      code,
		IssueDate: issueDate,
		Remarks:   remarks,
		CreatedAt: now,
	})
	return next, nil
}

// Redeem closes the latest open record for an outstanding code, setting its
// redeem date. Remarks, when non-empty, replace the record's remarks.
func Redeem(records []Record, code, redeemDate, remarks string, now time.Time) ([]Record, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, NewMissingFieldError("couponCode")
	}
	if redeemDate == "" {
		return nil, NewMissingFieldError("redeemDate")
	}
	if !ValidDate(redeemDate) {
		return nil, NewBadDateError("redeemDate", redeemDate)
	}
	if StatusOf(records, code) != StatusOutstanding {
		return nil, NewNotOutstandingError(code)
	}

	target, ok := latestOpen(records, code)
	if !ok {
		// Outstanding status implies an open record exists; reaching here
		// means the snapshot changed underneath us.
		return nil, &CommandError{
			Code:       ErrCodeNoSuchRecord,
			Message:    "no open issuance record found",
			CouponCode: code,
		}
	}

	next := copyRecords(records)
	for i := range next {
		if next[i].Seq != target {
			continue
		}
		next[i].RedeemDate = redeemDate
		if remarks != "" {
			next[i].Remarks = remarks
		}
		next[i].UpdatedAt = now
		break
	}
	return next, nil
}

// Delete removes the record with the given seq unconditionally. Deleting the
// sole outstanding record for a code silently returns that code to
// available, so callers should treat this as a destructive override and
// confirm before invoking it.
func Delete(records []Record, seq int64) ([]Record, error) {
	next := make([]Record, 0, len(records))
	found := false
	for _, r := range records {
		if r.Seq == seq {
			found = true
			continue
		}
		next = append(next, r)
	}
	if !found {
		return nil, NewNoSuchRecordError(seq)
	}
	return next, nil
}

// latestOpen returns the seq of the newest issued-but-unredeemed record for
// code, and whether one exists.
func latestOpen(records []Record, code string) (int64, bool) {
	var seq int64
	found := false
	for _, r := range records {
		if NormalizeCode(r.Code) != code || !r.Outstanding() {
			continue
		}
		if !found || r.Seq > seq {
			seq = r.Seq
			found = true
		}
	}
	return seq, found
}

func copyRecords(records []Record) []Record {
	next := make([]Record, len(records))
	copy(next, records)
	return next
}
