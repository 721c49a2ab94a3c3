package handler

import (
	"time"

	"vras/internal/auth/models"
)

// UserResponse is the wire shape of a principal. Credential material never
// leaves the server except the token issued at login.
type UserResponse struct {
	ID              int64   `json:"id"`
	TenantID        int64   `json:"client_id,omitempty"`
	Role            string  `json:"role"`
	Status          string  `json:"status"`
	Name            string  `json:"name"`
	LastName        string  `json:"last_name,omitempty"`
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	Mobile          string  `json:"mobile,omitempty"`
	Avatar          string  `json:"avatar,omitempty"`
	DeviceName      string  `json:"device_name,omitempty"`
	PairingCode     string  `json:"vr_code,omitempty"`
	DateOfBirth     string  `json:"date_of_birth,omitempty"`
	Gender          string  `json:"gender,omitempty"`
	PrimaryHand     string  `json:"primary_hand,omitempty"`
	Address         string  `json:"address,omitempty"`
	City            string  `json:"city,omitempty"`
	Country         string  `json:"country,omitempty"`
	PostalCode      string  `json:"postal_code,omitempty"`
	ExperienceLevel float64 `json:"experience_level,omitempty"`
	StressLevel     float64 `json:"stress_level,omitempty"`
	Notes           string  `json:"notes,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

func toUserResponse(u *models.User) UserResponse {
	res := UserResponse{
		ID:              u.ID.Int64(),
		TenantID:        u.TenantID.Int64(),
		Role:            string(u.Role),
		Status:          string(u.Status),
		Name:            u.Name,
		LastName:        u.LastName,
		Username:        u.Username,
		Email:           u.Email,
		Mobile:          u.Mobile,
		Avatar:          u.Avatar,
		DeviceName:      u.DeviceName,
		PairingCode:     u.PairingCode,
		Gender:          string(u.Gender),
		PrimaryHand:     string(u.PrimaryHand),
		Address:         u.Address,
		City:            u.City,
		Country:         u.Country,
		PostalCode:      u.PostalCode,
		ExperienceLevel: u.ExperienceLevel,
		StressLevel:     u.StressLevel,
		Notes:           u.Notes,
		CreatedAt:       u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       u.UpdatedAt.Format(time.RFC3339),
	}
	if u.DateOfBirth != nil {
		res.DateOfBirth = u.DateOfBirth.Format("2006-01-02")
	}
	return res
}

func toUserResponses(users []*models.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}
