package dtos

import "github.com/wearedev-studio/skillgame-app-sub001/internal/models"

type BlockIPRequest struct {
	IP              string `json:"ip" validate:"required,ip"`
	Reason          string `json:"reason" validate:"required"`
	DurationSeconds int    `json:"duration" validate:"omitempty,min=1"`
}

type UnblockIPRequest struct {
	IP string `json:"ip" validate:"required,ip"`
}

type SessionListResponse struct {
	Sessions []models.Session `json:"sessions"`
	Count    int              `json:"count"`
}

type ForceLogoutResponse struct {
	UserID          string `json:"user_id"`
	SessionsRevoked int    `json:"sessions_revoked"`
}

type EventListResponse struct {
	Events []models.SecurityEvent `json:"events"`
	Count  int                    `json:"count"`
}

type WebhookAckResponse struct {
	Received bool `json:"received"`
}
