package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wearedev-studio/skillgame-app-sub001/internal/dtos"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/services"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/utils"
)

// SecurityController exposes the monitor and session tracker to admins.
type SecurityController struct {
	monitor  services.MonitorService
	sessions services.SessionService
}

func NewSecurityController(monitor services.MonitorService, sessions services.SessionService) *SecurityController {
	return &SecurityController{monitor: monitor, sessions: sessions}
}

func (c *SecurityController) Dashboard(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, c.monitor.DashboardData(r.Context()))
}

func (c *SecurityController) RecentEvents(w http.ResponseWriter, r *http.Request) {
	events := c.monitor.RecentEvents(100)
	utils.RespondWithJSON(w, http.StatusOK, dtos.EventListResponse{
		Events: events,
		Count:  len(events),
	})
}

func (c *SecurityController) BlockIP(w http.ResponseWriter, r *http.Request) {
	var req dtos.BlockIPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid block request", nil, err,
		)
		return
	}

	duration := time.Duration(req.DurationSeconds) * time.Second
	c.monitor.BlockIP(r.Context(), req.IP, req.Reason, duration)
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "blocked", "ip": req.IP})
}

func (c *SecurityController) UnblockIP(w http.ResponseWriter, r *http.Request) {
	var req dtos.UnblockIPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid unblock request", nil, err,
		)
		return
	}

	c.monitor.UnblockIP(r.Context(), req.IP)
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "unblocked", "ip": req.IP})
}

func (c *SecurityController) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := c.sessions.List()
	utils.RespondWithJSON(w, http.StatusOK, dtos.SessionListResponse{
		Sessions: sessions,
		Count:    len(sessions),
	})
}

// ForceLogout expires every session for the given user ("log out
// everywhere"). Outstanding tokens die on their next request when the
// session tracker reports the ID as revoked.
func (c *SecurityController) ForceLogout(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if userID == "" {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Missing user id", nil,
		)
		return
	}

	revoked := c.sessions.RevokeAllForUser(userID)
	utils.RespondWithJSON(w, http.StatusOK, dtos.ForceLogoutResponse{
		UserID:          userID,
		SessionsRevoked: revoked,
	})
}
