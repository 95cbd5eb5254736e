package dto

// CreateComplaintRequest is submitted by a student.
type CreateComplaintRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

// UpdateComplaintStatusRequest sets the free-text status of a complaint.
type UpdateComplaintStatusRequest struct {
	Status string `json:"status" validate:"required,max=64"`
}
