package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaveRequestJSONUsesCalendarDays(t *testing.T) {
	applied := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	leave := LeaveRequest{
		ID:          "l1",
		StudentID:   "s1",
		FromDate:    time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
		ToDate:      time.Date(2026, 10, 22, 0, 0, 0, 0, time.UTC),
		Reason:      "Family function",
		Status:      LeaveStatusApplied,
		AppliedDate: applied,
		UpdatedAt:   applied,
	}

	raw, err := json.Marshal(leave)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "2026-10-20", fields["from_date"])
	assert.Equal(t, "2026-10-22", fields["to_date"])
	assert.Equal(t, "Applied", fields["status"])
	assert.Equal(t, "2026-10-18T09:30:00Z", fields["applied_date"])

	var decoded LeaveRequest
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, leave, decoded)
}

func TestLeaveRequestJSONRejectsTimestampDays(t *testing.T) {
	var leave LeaveRequest
	err := json.Unmarshal([]byte(`{"id":"l1","from_date":"2026-10-20T00:00:00Z","to_date":"2026-10-22"}`), &leave)
	assert.ErrorContains(t, err, "from_date")
}
