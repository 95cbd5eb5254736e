package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// LeaveDateLayout is the calendar day format of from_date and to_date.
const LeaveDateLayout = "2006-01-02"

// LeaveStatus is the persisted approval stage of a leave request. The values
// are the strings the mobile client has always displayed.
type LeaveStatus string

const (
	LeaveStatusApplied           LeaveStatus = "Applied"
	LeaveStatusApprovedByTeacher LeaveStatus = "Approved by Teacher"
	LeaveStatusApprovedByWarden  LeaveStatus = "Approved by Warden"
	LeaveStatusRejectedByTeacher LeaveStatus = "Rejected by Teacher"
	LeaveStatusRejectedByWarden  LeaveStatus = "Rejected by Warden"
)

// LeaveRequest is a student's application to be away from the hostel.
type LeaveRequest struct {
	ID                string      `db:"id" json:"id"`
	StudentID         string      `db:"student_id" json:"student_id"`
	StudentName       *string     `db:"student_name" json:"student_name,omitempty"`
	FromDate          time.Time   `db:"from_date" json:"from_date"`
	ToDate            time.Time   `db:"to_date" json:"to_date"`
	Reason            string      `db:"reason" json:"reason"`
	Status            LeaveStatus `db:"status" json:"status"`
	ApprovedByTeacher *string     `db:"approved_by_teacher" json:"approved_by_teacher,omitempty"`
	ApprovedByWarden  *string     `db:"approved_by_warden" json:"approved_by_warden,omitempty"`
	TeacherDecidedAt  *time.Time  `db:"teacher_decided_at" json:"teacher_decided_at,omitempty"`
	WardenDecidedAt   *time.Time  `db:"warden_decided_at" json:"warden_decided_at,omitempty"`
	AppliedDate       time.Time   `db:"applied_date" json:"applied_date"`
	UpdatedAt         time.Time   `db:"updated_at" json:"updated_at"`
}

type leaveRequestFields LeaveRequest

// leaveRequestWire carries the leave window as plain calendar days.
type leaveRequestWire struct {
	leaveRequestFields
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
}

// MarshalJSON writes from_date and to_date as YYYY-MM-DD.
func (l LeaveRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(leaveRequestWire{
		leaveRequestFields: leaveRequestFields(l),
		FromDate:           l.FromDate.Format(LeaveDateLayout),
		ToDate:             l.ToDate.Format(LeaveDateLayout),
	})
}

// UnmarshalJSON reads the YYYY-MM-DD leave window written by MarshalJSON.
func (l *LeaveRequest) UnmarshalJSON(data []byte) error {
	var wire leaveRequestWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	from, err := time.Parse(LeaveDateLayout, wire.FromDate)
	if err != nil {
		return fmt.Errorf("from_date: %w", err)
	}
	to, err := time.Parse(LeaveDateLayout, wire.ToDate)
	if err != nil {
		return fmt.Errorf("to_date: %w", err)
	}
	*l = LeaveRequest(wire.leaveRequestFields)
	l.FromDate, l.ToDate = from, to
	return nil
}

// LeaveFilter narrows leave listings.
type LeaveFilter struct {
	StudentID   *string
	Status      *LeaveStatus
	AppliedFrom *time.Time
	AppliedTo   *time.Time
}

// LeaveDecision captures a single approval step applied to a request.
type LeaveDecision struct {
	LeaveID   string
	From      LeaveStatus
	To        LeaveStatus
	DecidedBy string
	DecidedAt time.Time
	ByRole    UserRole
}
