package controllers

import (
	"net/http"

	"github.com/wearedev-studio/skillgame-app-sub001/internal/dtos"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/middleware"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/services"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/utils"
)

type CSRFController struct {
	csrfService services.CSRFService
}

func NewCSRFController(csrfService services.CSRFService) *CSRFController {
	return &CSRFController{csrfService: csrfService}
}

// IssueToken hands out a single-use CSRF token bound to the caller's
// session (or IP when anonymous). Tokens burn on first use, so clients
// re-fetch after every mutating call.
func (c *CSRFController) IssueToken(w http.ResponseWriter, r *http.Request) {
	token := c.csrfService.Issue(middleware.CSRFOwnerKey(r))
	utils.RespondWithJSON(w, http.StatusOK, dtos.CSRFTokenResponse{Token: token})
}
