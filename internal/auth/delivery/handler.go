package delivery

import (
	"net/http"
	"time"

	authdto "jobtrail-backend/internal/auth/dto"
	"jobtrail-backend/internal/auth/usecase"
	credentialdomain "jobtrail-backend/internal/credentials/domain"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authUsecase usecase.AuthUsecase
}

func NewAuthHandler(authUsecase usecase.AuthUsecase) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
	}
}

// GoogleSignInURL returns the consent URL that starts a sign-in flow
func (h *AuthHandler) GoogleSignInURL(c *gin.Context) {
	url, err := h.authUsecase.AuthorizationURL("", credentialdomain.TypePrimary)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, authdto.AuthURLResponse{URL: url})
}

// LinkSyncAccountURL returns a consent URL that binds a separate Google
// account for mailbox sync to the signed-in user
func (h *AuthHandler) LinkSyncAccountURL(c *gin.Context) {
	userID := c.GetString("user_id")

	url, err := h.authUsecase.AuthorizationURL(userID, credentialdomain.TypeEmailSync)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, authdto.AuthURLResponse{URL: url})
}

// GoogleCallback completes either flow based on the signed state
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code and state are required"})
		return
	}

	resp, err := h.authUsecase.HandleCallback(c.Request.Context(), code, state)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString("user_id")

	user, err := h.authUsecase.GetUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// SetStartDate updates the date tracking begins from
func (h *AuthHandler) SetStartDate(c *gin.Context) {
	userID := c.GetString("user_id")

	var req authdto.StartDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
		return
	}

	if err := h.authUsecase.UpdateStartDate(userID, startDate); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "start date updated successfully"})
}
