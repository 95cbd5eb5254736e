package dto

import "github.com/noah-isme/hostel-out-api/internal/models"

// RegisterStudentRequest is the public sign-up payload.
type RegisterStudentRequest struct {
	Name               string `json:"name" validate:"required,max=120"`
	RegistrationNumber string `json:"registrationNumber" validate:"required,max=40"`
	Department         string `json:"department" validate:"required,max=80"`
	Email              string `json:"email" validate:"required,email"`
	Phone              string `json:"phone" validate:"required,max=20"`
	GuardianPhone      string `json:"guardianPhone" validate:"required,max=20"`
	RoomNumber         string `json:"roomNumber" validate:"required,max=20"`
	Password           string `json:"password" validate:"required,min=6"`
}

// CreateTeacherRequest provisions a teacher account.
type CreateTeacherRequest struct {
	Name       string `json:"name" validate:"required,max=120"`
	Department string `json:"department" validate:"required,max=80"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required,max=20"`
	Password   string `json:"password" validate:"required,min=6"`
}

// CreateWardenRequest provisions a warden account.
type CreateWardenRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,max=20"`
	Password string `json:"password" validate:"required,min=6"`
}

// StudentResponse is the public view of a student account.
type StudentResponse struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	RegistrationNumber string `json:"registrationNumber"`
	Department         string `json:"department"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	GuardianPhone      string `json:"guardianPhone"`
	RoomNumber         string `json:"roomNumber"`
}

// TeacherResponse is the public view of a teacher account.
type TeacherResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

// WardenResponse is the public view of a warden account.
type WardenResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// NewStudentResponse maps a user row to its student view.
func NewStudentResponse(u *models.User) StudentResponse {
	return StudentResponse{
		ID:                 u.ID,
		Name:               u.FullName,
		RegistrationNumber: deref(u.RegistrationNumber),
		Department:         deref(u.Department),
		Email:              u.Email,
		Phone:              u.Phone,
		GuardianPhone:      deref(u.GuardianPhone),
		RoomNumber:         deref(u.RoomNumber),
	}
}

// NewTeacherResponse maps a user row to its teacher view.
func NewTeacherResponse(u *models.User) TeacherResponse {
	return TeacherResponse{ID: u.ID, Name: u.FullName, Department: deref(u.Department), Email: u.Email, Phone: u.Phone}
}

// NewWardenResponse maps a user row to its warden view.
func NewWardenResponse(u *models.User) WardenResponse {
	return WardenResponse{ID: u.ID, Name: u.FullName, Email: u.Email, Phone: u.Phone}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
