package dto

// ApplyLeaveRequest is submitted by a student. Dates are YYYY-MM-DD.
type ApplyLeaveRequest struct {
	FromDate string `json:"fromDate" validate:"required,datetime=2006-01-02"`
	ToDate   string `json:"toDate" validate:"required,datetime=2006-01-02"`
	Reason   string `json:"reason" validate:"required,max=1000"`
}
