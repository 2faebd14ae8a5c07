package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestRecordFilter_Matches(t *testing.T) {
	issued := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	rec := &VerificationRecord{
		RecordID:    "01J",
		Email:       "a@b.com",
		Code:        "code-1",
		IssuedAt:    issued,
		Invalidated: false,
	}

	hourBefore := issued.Add(-time.Hour)
	hourAfter := issued.Add(time.Hour)

	tests := []struct {
		name   string
		filter RecordFilter
		want   bool
	}{
		{"empty filter matches everything", RecordFilter{}, true},
		{"email match", RecordFilter{Email: strPtr("a@b.com")}, true},
		{"email mismatch", RecordFilter{Email: strPtr("x@y.com")}, false},
		{"code match", RecordFilter{Code: strPtr("code-1")}, true},
		{"code mismatch", RecordFilter{Code: strPtr("code-2")}, false},
		{"issued after lower bound", RecordFilter{IssuedAfter: &hourBefore}, true},
		{"issued before lower bound", RecordFilter{IssuedAfter: &hourAfter}, false},
		{"issued before upper bound", RecordFilter{IssuedBefore: &hourAfter}, true},
		{"issued after upper bound", RecordFilter{IssuedBefore: &hourBefore}, false},
		{"bounds are inclusive", RecordFilter{IssuedAfter: &issued, IssuedBefore: &issued}, true},
		{"invalidated mismatch", RecordFilter{Invalidated: boolPtr(true)}, false},
		{"invalidated match", RecordFilter{Invalidated: boolPtr(false)}, true},
		{
			"all fields AND together",
			RecordFilter{Email: strPtr("a@b.com"), Code: strPtr("code-1"), IssuedAfter: &hourBefore, Invalidated: boolPtr(false)},
			true,
		},
		{
			"one mismatching field rejects",
			RecordFilter{Email: strPtr("a@b.com"), Code: strPtr("code-2")},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(rec))
		})
	}
}
