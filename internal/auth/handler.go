package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/in-nis/classdash/internal/respond"
)

const stateCookie = "oauth_state"

type Handler struct {
	svc    *Service
	google *Google
}

func NewHandler(svc *Service, google *Google) *Handler {
	return &Handler{svc: svc, google: google}
}

type SignUpRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8,max=72"`
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" binding:"required,max=100"`
	Role      string `json:"role" binding:"omitempty,oneof=student teacher"`
}

type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type SignOutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// writeError maps an auth failure onto an HTTP status.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrEmailTaken):
		respond.Error(c, http.StatusConflict, ErrEmailTaken.Error())
	case errors.Is(err, ErrInvalidRole):
		respond.Error(c, http.StatusBadRequest, ErrInvalidRole.Error())
	case errors.Is(err, ErrInvalidCredentials):
		respond.Error(c, http.StatusUnauthorized, ErrInvalidCredentials.Error())
	case errors.Is(err, ErrTokenRevoked), errors.Is(err, ErrInvalidToken):
		respond.Error(c, http.StatusUnauthorized, "Invalid refresh token")
	default:
		h.svc.log.Error("auth request failed", zap.Error(err))
		respond.Error(c, http.StatusInternalServerError, "Authentication failed")
	}
}

// SignUp godoc
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      SignUpRequest  true  "Account"
// @Success      201   {object}  Session
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /auth/signup [post]
func (h *Handler) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}

	sess, err := h.svc.SignUp(c.Request.Context(), req.Email, req.Password, Profile{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// SignIn godoc
// @Summary      Sign in with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      SignInRequest  true  "Credentials"
// @Success      200   {object}  Session
// @Failure      401   {object}  map[string]string
// @Router       /auth/signin [post]
func (h *Handler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}

	sess, err := h.svc.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// SignOut godoc
// @Summary      Sign out
// @Description  Revokes the access token and, if given, the refresh token
// @Tags         auth
// @Accept       json
// @Param        body  body  SignOutRequest  false  "Refresh token to revoke"
// @Success      204
// @Failure      401   {object}  map[string]string
// @Security     BearerAuth
// @Router       /auth/signout [post]
func (h *Handler) SignOut(c *gin.Context) {
	var req SignOutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BindError(c, err)
			return
		}
	}

	if err := h.svc.SignOut(c.Request.Context(), CurrentSession(c), req.RefreshToken); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Refresh godoc
// @Summary      Refresh tokens
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      RefreshRequest  true  "Refresh token"
// @Success      200   {object}  Session
// @Failure      401   {object}  map[string]string
// @Router       /auth/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "Missing refresh token")
		return
	}

	sess, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// Me godoc
// @Summary      Current session
// @Tags         auth
// @Produce      json
// @Success      200  {object}  Session
// @Failure      401  {object}  map[string]string
// @Security     BearerAuth
// @Router       /me [get]
func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, CurrentSession(c))
}

// GoogleLogin godoc
// @Summary      Login with Google
// @Description  Redirects to the Google consent screen
// @Tags         auth
// @Success      307
// @Router       /auth/google/login [get]
func (h *Handler) GoogleLogin(c *gin.Context) {
	if !h.google.Enabled() {
		respond.Error(c, http.StatusNotFound, "Google login is not configured")
		return
	}
	state := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, 600, "/auth/google", "", false, true)
	c.Redirect(http.StatusTemporaryRedirect, h.google.AuthCodeURL(state))
}

// GoogleCallback godoc
// @Summary      Google callback
// @Description  Completes Google login and returns a session
// @Tags         auth
// @Produce      json
// @Param        code   query     string  true  "Authorization code"
// @Param        state  query     string  true  "OAuth state"
// @Success      200    {object}  Session
// @Failure      400    {object}  map[string]string
// @Router       /auth/google/callback [get]
func (h *Handler) GoogleCallback(c *gin.Context) {
	state, err := c.Cookie(stateCookie)
	if err != nil || state == "" || state != c.Query("state") {
		respond.Error(c, http.StatusBadRequest, "Invalid OAuth state")
		return
	}
	c.SetCookie(stateCookie, "", -1, "/auth/google", "", false, true)

	gu, err := h.google.FetchUser(c.Request.Context(), c.Query("code"))
	if err != nil {
		h.svc.log.Warn("google exchange failed", zap.Error(err))
		respond.Error(c, http.StatusBadRequest, "Failed to exchange token")
		return
	}

	sess, err := h.svc.SignInWithGoogle(c.Request.Context(), gu)
	if err != nil {
		if errors.Is(err, ErrNoEmail) {
			respond.Error(c, http.StatusBadRequest, "Failed to get user info")
			return
		}
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}
