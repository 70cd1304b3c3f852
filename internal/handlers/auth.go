package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/tombola/internal/admin"
	"github.com/mossy-p/tombola/internal/apperr"
	"github.com/mossy-p/tombola/internal/middleware"
	"github.com/mossy-p/tombola/internal/models"
	"go.uber.org/zap"
)

// SuperAdminLogin checks the credentials against the allow-list and returns a
// signed session token.
func SuperAdminLogin(m *admin.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SuperAdminLoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request body",
			})
			return
		}

		token, expires, err := m.Login(req.Username, req.Password)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuperAdminLoginResponse{
			Success:   true,
			Token:     token,
			ExpiresAt: expires,
		})
	}
}

// CreateAdminCode mints an admin code. It sits behind the super-admin
// middleware.
func CreateAdminCode(m *admin.Manager, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreateAdminCodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := m.Issue(c.Request.Context(), req.AdminCode, req.MaxRooms); err != nil {
			respondError(c, err)
			return
		}

		log.Info("admin code created", zap.String("by", c.GetString(middleware.ContextSuperAdmin)))
		c.JSON(http.StatusCreated, models.ResultResponse{
			Success: true,
			Message: "admin code created",
		})
	}
}

// VerifyAdminCode is public so the admin UI can check a code before opening
// a socket.
func VerifyAdminCode(m *admin.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.VerifyAdminCodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		v, err := m.Verify(c.Request.Context(), req.Code)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.VerifyAdminCodeResponse{
			Valid:          v.Valid,
			RemainingQuota: v.RemainingQuota,
		})
	}
}

// respondError maps an error kind to an HTTP status.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, admin.ErrInvalidCredentials), errors.Is(err, admin.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, apperr.ErrAuthorization):
		status = http.StatusForbidden
	case errors.Is(err, apperr.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrCapacity):
		status = http.StatusConflict
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
