package models

import "time"

// ComplaintStatusPending is assigned to every new complaint. Wardens may set
// any other text afterwards, "Resolved" being the customary one.
const (
	ComplaintStatusPending  = "Pending"
	ComplaintStatusResolved = "Resolved"
)

// Complaint is a free-form issue raised by a student.
type Complaint struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	StudentName *string   `db:"student_name" json:"student_name,omitempty"`
	Message     string    `db:"message" json:"message"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
