package http

import (
	"net/http"
	"strings"
	"time"

	"sketchroom/internal/core/domain"
	"sketchroom/internal/core/ports"
	"sketchroom/internal/infrastructure/middleware"
	"sketchroom/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CookieConfig describes the session cookie set on login.
type CookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

type AuthHandler struct {
	authService ports.AuthService
	cookie      CookieConfig
	logger      *zap.SugaredLogger
}

func NewAuthHandler(authService ports.AuthService, cookie CookieConfig, logger *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookie:      cookie,
		logger:      logger,
	}
}

func (h *AuthHandler) SetupRoutes(router gin.IRouter) {
	router.POST("/register", h.Register)
	router.POST("/login", h.Login)
	router.GET("/logout", h.Logout)
	router.GET("/current-user", middleware.AuthMiddleware(h.authService, h.cookie.Name), h.CurrentUser)
}

type CredentialsRequest struct {
	Username string `json:"username" binding:"required,max=50"`
	Password string `json:"password" binding:"required,max=128"`
}

type UserResponse struct {
	ID        domain.UserID `json:"id"`
	Username  string        `json:"username"`
	CreatedAt time.Time     `json:"createdAt"`
}

func newUserResponse(u *domain.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewInvalidInputError("username and password are required"))
		return
	}

	user, err := h.authService.Register(c.Request.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": newUserResponse(user)})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewInvalidInputError("username and password are required"))
		return
	}

	user, token, err := h.authService.Login(c.Request.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.setCookie(c, token, int(h.cookie.TTL.Seconds()))
	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

// Logout always clears the cookie, even when the session is already gone.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := middleware.SessionToken(c, h.cookie.Name)
	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		h.logger.Warnw("failed to delete session on logout", "error", err)
	}

	h.setCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *AuthHandler) CurrentUser(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		_ = c.Error(errors.NewUnauthenticatedError("authentication required"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

func (h *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, value, maxAge, "/", "", h.cookie.Secure, true)
}
