package handler

import (
	"time"

	"github.com/zoonosys/zoonosys-api/internal/core/domain"
)

type registerRequest struct {
	Email          string `json:"email"           validate:"required,email"`
	Password       string `json:"password"        validate:"required,min=8"`
	Role           string `json:"role"            validate:"required"`
	Name           string `json:"name"            validate:"required"`
	CPF            string `json:"cpf"             validate:"required"`
	Phone          string `json:"phone"           validate:"required"`
	Sex            string `json:"sex"`
	SecondaryPhone string `json:"secondary_phone"`
	SecondaryEmail string `json:"secondary_email" validate:"omitempty,email"`
	Address        string `json:"address"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
}

type principalResponse struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	CPF            string    `json:"cpf"`
	Phone          string    `json:"phone"`
	Sex            string    `json:"sex,omitempty"`
	SecondaryPhone string    `json:"secondary_phone,omitempty"`
	SecondaryEmail string    `json:"secondary_email,omitempty"`
	Address        string    `json:"address,omitempty"`
	Roles          []string  `json:"roles"`
	CreatedAt      time.Time `json:"created_at"`
}

type registerResponse struct {
	User principalResponse `json:"user"`
}

type identityResponse struct {
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expires_at"`
}

type resetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetConfirmRequest struct {
	NewPassword          string `json:"new_password"          validate:"required,min=8"`
	ConfirmationPassword string `json:"confirmation_password" validate:"required"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func toPrincipalResponse(p *domain.Principal) principalResponse {
	return principalResponse{
		ID:             p.ID,
		Email:          p.Email,
		Name:           p.Name,
		CPF:            p.CPF,
		Phone:          p.Phone,
		Sex:            p.Sex,
		SecondaryPhone: p.SecondaryPhone,
		SecondaryEmail: p.SecondaryEmail,
		Address:        p.Address,
		Roles:          p.Roles,
		CreatedAt:      p.CreatedAt,
	}
}

// errorResponse documents the envelope rendered by the API error handler.
type errorResponse struct {
	Error string `json:"error"`
}
