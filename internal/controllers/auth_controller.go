package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/wearedev-studio/skillgame-app-sub001/internal/dtos"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/middleware"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/repositories"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/services"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/utils"
)

var validate = validator.New()

type AuthController struct {
	authService services.AuthService
	users       repositories.UserRepository
}

func NewAuthController(authService services.AuthService, users repositories.UserRepository) *AuthController {
	return &AuthController{authService: authService, users: users}
}

func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req dtos.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid email or password format", nil, err,
		)
		return
	}

	ip := utils.ClientIP(r)
	result, err := c.authService.Login(r.Context(), req.Email, req.Password, ip, r.UserAgent())
	if err != nil {
		var locked *services.ErrLockedOut
		switch {
		case errors.As(err, &locked):
			retrySeconds := int(locked.RetryAfter.Seconds())
			w.Header().Set("Retry-After", strconv.Itoa(retrySeconds))
			utils.RespondErrorWithCode(
				w, http.StatusTooManyRequests, utils.ErrCodeTooManyAttempts,
				"Too many failed attempts, try again later",
				map[string]any{"retry_after_seconds": retrySeconds},
			)
		case errors.Is(err, services.ErrInvalidCredentials):
			utils.RespondErrorWithCode(
				w, http.StatusUnauthorized, utils.ErrCodeInvalidCredentials,
				"Invalid email or password", nil,
			)
		case errors.Is(err, services.ErrAccountSuspended):
			utils.RespondErrorWithCode(
				w, http.StatusForbidden, utils.ErrCodeAccountSuspended,
				"Account is suspended or banned", nil,
			)
		default:
			utils.RespondErrorWithCode(
				w, http.StatusInternalServerError, utils.ErrCodeInternal,
				"Login failed", nil, err,
			)
		}
		return
	}

	// The session cookie lets browser clients bind CSRF tokens to the
	// session instead of the IP.
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    result.SessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})

	utils.RespondWithJSON(w, http.StatusOK, dtos.LoginResponse{
		Token:     result.Token,
		SessionID: result.SessionID,
		User:      result.User,
	})
}

func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.ExtractBearerToken(r)
	sessionID := middleware.SessionIDFromRequest(r)
	c.authService.Logout(r.Context(), token, sessionID)

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (c *AuthController) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(middleware.UserIDFromRequest(r))
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeInvalidToken, "Invalid subject", nil,
		)
		return
	}

	user, err := c.users.FindByID(r.Context(), userID)
	if err != nil || user == nil {
		utils.RespondErrorWithCode(
			w, http.StatusNotFound, utils.ErrCodeUserNotFound, "Account not found", nil, err,
		)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.MeResponse{
		User:      user,
		SessionID: middleware.SessionIDFromRequest(r),
	})
}
