package domain

import "time"

// VerificationRecord is one emailed authentication code for one recipient.
// Multiple records per email may exist across time; the protocol keeps at
// most one active record (not invalidated, issued within the reuse window).
type VerificationRecord struct {
	RecordID    string    `json:"id" dynamodbav:"record_id"`
	Email       string    `json:"email" dynamodbav:"email"`
	Code        string    `json:"code" dynamodbav:"code"`
	IssuedAt    time.Time `json:"issued_at" dynamodbav:"issued_at"`
	Invalidated bool      `json:"invalidated" dynamodbav:"invalidated"`
}

// RecordFilter selects verification records. Nil fields match everything;
// set fields are combined with AND.
type RecordFilter struct {
	Email        *string
	Code         *string
	IssuedAfter  *time.Time // issued_at >= value
	IssuedBefore *time.Time // issued_at <= value
	Invalidated  *bool
}

// Matches reports whether the record satisfies every set field of the filter.
func (f RecordFilter) Matches(r *VerificationRecord) bool {
	if f.Email != nil && r.Email != *f.Email {
		return false
	}
	if f.Code != nil && r.Code != *f.Code {
		return false
	}
	if f.IssuedAfter != nil && r.IssuedAt.Before(*f.IssuedAfter) {
		return false
	}
	if f.IssuedBefore != nil && r.IssuedAt.After(*f.IssuedBefore) {
		return false
	}
	if f.Invalidated != nil && r.Invalidated != *f.Invalidated {
		return false
	}
	return true
}

// RecordUpdate carries the fields of an in-place record update.
// Nil fields keep their prior value.
type RecordUpdate struct {
	Email       *string
	Code        *string
	IssuedAt    *time.Time
	Invalidated *bool
}
