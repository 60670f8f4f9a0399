package controllers

import (
	"net/http"

	"github.com/wearedev-studio/skillgame-app-sub001/internal/dtos"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/utils"
)

type HealthController struct{}

func NewHealthController() *HealthController {
	return &HealthController{}
}

func (c *HealthController) HealthCheck(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, dtos.HealthCheckResponse{Status: "OK"})
}
