package handler

type LoginRequest struct {
	Username string `json:"username" validate:"required,notblank"`
	Password string `json:"password" validate:"required"`
}

type PairingLoginRequest struct {
	Code string `json:"code" validate:"required,len=4,numeric"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email                string `json:"email" validate:"required,email"`
	Code                 string `json:"code" validate:"required,notblank"`
	Password             string `json:"password" validate:"required,min=6"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

type ChangePasswordRequest struct {
	CurrentPassword      string `json:"current_password" validate:"required"`
	Password             string `json:"password" validate:"required,min=6"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

type CreateUserRequest struct {
	Name            string  `json:"name" validate:"required,notblank"`
	LastName        string  `json:"last_name"`
	Username        string  `json:"username" validate:"required,notblank"`
	Email           string  `json:"email" validate:"required,email"`
	Mobile          string  `json:"mobile" validate:"required,notblank"`
	Password        string  `json:"password" validate:"required,min=6"`
	Role            string  `json:"role" validate:"omitempty,oneof=operator user"`
	Avatar          string  `json:"avatar"`
	DateOfBirth     string  `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender          string  `json:"gender" validate:"omitempty,oneof=male female"`
	PrimaryHand     string  `json:"primary_hand" validate:"omitempty,oneof=left right"`
	Address         string  `json:"address"`
	City            string  `json:"city"`
	Country         string  `json:"country"`
	PostalCode      string  `json:"postal_code"`
	ExperienceLevel float64 `json:"experience_level" validate:"omitempty,min=0,max=10"`
	StressLevel     float64 `json:"stress_level" validate:"omitempty,min=0,max=10"`
	Notes           string  `json:"notes"`
}

type UpdateUserRequest struct {
	Name            string  `json:"name"`
	LastName        string  `json:"last_name"`
	Username        string  `json:"username"`
	Email           string  `json:"email" validate:"omitempty,email"`
	Mobile          string  `json:"mobile"`
	Password        string  `json:"password" validate:"omitempty,min=6"`
	Role            string  `json:"role" validate:"omitempty,oneof=operator user"`
	Status          string  `json:"status" validate:"omitempty,oneof=active inactive"`
	Avatar          string  `json:"avatar"`
	DateOfBirth     string  `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender          string  `json:"gender" validate:"omitempty,oneof=male female"`
	PrimaryHand     string  `json:"primary_hand" validate:"omitempty,oneof=left right"`
	Address         string  `json:"address"`
	City            string  `json:"city"`
	Country         string  `json:"country"`
	PostalCode      string  `json:"postal_code"`
	ExperienceLevel float64 `json:"experience_level" validate:"omitempty,min=0,max=10"`
	StressLevel     float64 `json:"stress_level" validate:"omitempty,min=0,max=10"`
	Notes           string  `json:"notes"`
}

type UpdateProfileRequest struct {
	Name        string `json:"name"`
	LastName    string `json:"last_name"`
	Username    string `json:"username"`
	Email       string `json:"email" validate:"omitempty,email"`
	Mobile      string `json:"mobile"`
	Avatar      string `json:"avatar"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender      string `json:"gender" validate:"omitempty,oneof=male female"`
	PrimaryHand string `json:"primary_hand" validate:"omitempty,oneof=left right"`
	Address     string `json:"address"`
	City        string `json:"city"`
	Country     string `json:"country"`
	PostalCode  string `json:"postal_code"`
	Notes       string `json:"notes"`
}
