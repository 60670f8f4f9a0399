package dtos

import "github.com/wearedev-studio/skillgame-app-sub001/internal/models"

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginResponse struct {
	Token     string       `json:"token"`
	SessionID string       `json:"session_id"`
	User      *models.User `json:"user"`
}

type MeResponse struct {
	User      *models.User `json:"user"`
	SessionID string       `json:"session_id"`
}

type CSRFTokenResponse struct {
	Token string `json:"csrf_token"`
}

type HealthCheckResponse struct {
	Status string `json:"status"`
}
