package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/stylistai/auth-service/internal/auth"       // authentication service
	"github.com/stylistai/auth-service/internal/repository" // sentinel store errors
)

// AuthHandler bundles dependencies for auth endpoints. All business logic
// lives in the service; handlers only bind requests, pass caller context
// through, and map typed errors onto HTTP statuses.
type AuthHandler struct {
	Svc *auth.Service
	Env string
}

func NewAuthHandler(svc *auth.Service, env string) *AuthHandler {
	return &AuthHandler{Svc: svc, Env: env}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}
type logoutReq struct {
	SessionID string `json:"session_id"`
}
type resetBeginReq struct {
	Identifier string `json:"identifier"`
}
type resetConfirmReq struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type auditEventPart struct {
	ID         uint64    `json:"id"`
	UserID     string    `json:"user_id,omitempty"`
	Action     string    `json:"action"`
	Success    bool      `json:"success"`
	Details    string    `json:"details"`
	SourceAddr string    `json:"source_address"`
	ClientDesc string    `json:"client_descriptor"`
	Timestamp  time.Time `json:"timestamp"`
}

const requestTimeout = 5 * time.Second

// reqContext bounds handler-initiated store work the way the other
// endpoints do, independent of how long the client keeps the socket open.
func reqContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// clientInfo extracts the opaque caller context recorded in audit events.
func clientInfo(c echo.Context) (sourceAddr, clientDesc string) {
	return c.RealIP(), c.Request().UserAgent()
}

// Register creates a new account. The password travels only in the request
// body; the response carries the generated user ID.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/email/password required"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	src, desc := clientInfo(c)
	userID, err := h.Svc.Register(ctx, auth.RegisterInput{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		SourceAddr: src,
		ClientDesc: desc,
	})
	if err != nil {
		var ve *auth.ValidationError
		switch {
		case errors.As(err, &ve):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Message})
		case errors.Is(err, repository.ErrUsernameExists), errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		default:
			return h.serverError(c, err)
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{"user_id": userID})
}

// Login verifies credentials and returns the opaque session token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Identifier = strings.TrimSpace(req.Identifier)
	if req.Identifier == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "identifier/password required"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	src, desc := clientInfo(c)
	token, err := h.Svc.Login(ctx, req.Identifier, req.Password, src, desc)
	if err != nil {
		var locked *auth.AccountLockedError
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
		case errors.Is(err, auth.ErrAccountDisabled):
			return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
		case errors.As(err, &locked):
			secs := int(locked.Remaining.Seconds())
			c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
			return c.JSON(http.StatusLocked, echo.Map{
				"error":       locked.Error(),
				"retry_after": secs,
			})
		default:
			return h.serverError(c, err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"session_id": token})
}

// Logout deactivates the session named by the Authorization header or the
// request body. Logging out an already-dead session is not an error; the
// response just reports that nothing changed.
func (h *AuthHandler) Logout(c echo.Context) error {
	token := bearerToken(c)
	if token == "" {
		var req logoutReq
		_ = c.Bind(&req)
		token = strings.TrimSpace(req.SessionID)
	}
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide Authorization header or session_id"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	src, desc := clientInfo(c)
	loggedOut := h.Svc.Logout(ctx, token, src, desc)
	return c.JSON(http.StatusOK, echo.Map{"logged_out": loggedOut})
}

// Me returns the authenticated principal's profile. The session guard has
// already resolved the token into "user_id".
func (h *AuthHandler) Me(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)

	ctx, cancel := reqContext(c)
	defer cancel()

	profile, err := h.Svc.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown principal"})
		}
		return h.serverError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

// BeginPasswordReset issues a reset token. The response is identical for
// known and unknown identifiers. Outside production the raw token is
// echoed back, since mail delivery is not part of this service.
func (h *AuthHandler) BeginPasswordReset(c echo.Context) error {
	var req resetBeginReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Identifier) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "identifier required"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	src, desc := clientInfo(c)
	token, err := h.Svc.BeginPasswordReset(ctx, strings.TrimSpace(req.Identifier), src, desc)
	if err != nil {
		return h.serverError(c, err)
	}

	resp := echo.Map{"message": "if the account exists, a reset token has been issued"}
	if token != "" && h.Env != "prod" {
		resp["token"] = token
	}
	return c.JSON(http.StatusAccepted, resp)
}

// CompletePasswordReset consumes a reset token and installs a new password.
func (h *AuthHandler) CompletePasswordReset(c echo.Context) error {
	var req resetConfirmReq
	if err := c.Bind(&req); err != nil || req.Token == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token/new_password required"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	src, desc := clientInfo(c)
	err := h.Svc.CompletePasswordReset(ctx, req.Token, req.NewPassword, src, desc)
	if err != nil {
		var ve *auth.ValidationError
		switch {
		case errors.As(err, &ve):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Message})
		case errors.Is(err, auth.ErrInvalidResetToken):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
		default:
			return h.serverError(c, err)
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// RecentAuditEvents returns the newest audit entries for admin review.
// The authorization check belongs to the service, not this handler.
func (h *AuthHandler) RecentAuditEvents(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be a positive integer"})
		}
		limit = n
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	events, err := h.Svc.RecentAuditEvents(ctx, userID, limit)
	if err != nil {
		if errors.Is(err, auth.ErrForbidden) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return h.serverError(c, err)
	}

	out := make([]auditEventPart, 0, len(events))
	for _, ev := range events {
		out = append(out, auditEventPart{
			ID:         ev.ID,
			UserID:     ev.UserID,
			Action:     ev.Action,
			Success:    ev.Success,
			Details:    ev.Details,
			SourceAddr: ev.SourceAddr,
			ClientDesc: ev.ClientDesc,
			Timestamp:  ev.Timestamp,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"events": out})
}

// serverError hides persistence details behind a generic retry message and
// keeps the cause in the request log.
func (h *AuthHandler) serverError(c echo.Context, err error) error {
	c.Logger().Errorf("auth handler: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "temporary failure, try again"})
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
