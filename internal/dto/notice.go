package dto

// PublishNoticeRequest is the body of a new notice.
type PublishNoticeRequest struct {
	Title string `json:"title" validate:"required,max=200"`
	Body  string `json:"body" validate:"required,max=5000"`
}
