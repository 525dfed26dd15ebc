package delivery

import (
	"errors"
	"net/http"

	"jobtrail-backend/internal/ingest/usecase"

	"github.com/gin-gonic/gin"
)

type IngestHandler struct {
	service *usecase.IngestService
}

func NewIngestHandler(service *usecase.IngestService) *IngestHandler {
	return &IngestHandler{
		service: service,
	}
}

// StartFetch kicks off an ingestion run for the signed-in user
func (h *IngestHandler) StartFetch(c *gin.Context) {
	userID := c.GetString("user_id")

	err := h.service.StartIngestion(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrRunInProgress):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, usecase.ErrNoCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "fetch started"})
}

// StopFetch signals the in-flight run to stop at its next checkpoint
func (h *IngestHandler) StopFetch(c *gin.Context) {
	userID := c.GetString("user_id")

	if err := h.service.StopIngestion(userID); err != nil {
		if errors.Is(err, usecase.ErrNoActiveRun) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "stop requested"})
}

// Progress reports the latest run's status and counters
func (h *IngestHandler) Progress(c *gin.Context) {
	userID := c.GetString("user_id")

	progress, err := h.service.GetProgress(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if progress == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no runs yet"})
		return
	}

	c.JSON(http.StatusOK, progress)
}

// ListApplications returns stored applications, newest first
func (h *IngestHandler) ListApplications(c *gin.Context) {
	userID := c.GetString("user_id")
	includeUnknown := c.Query("include_unknown") == "true"

	records, err := h.service.ListApplications(userID, includeUnknown)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"applications": records, "total": len(records)})
}

type updateApplicationRequest struct {
	CompanyName       string `json:"company_name"`
	ApplicationStatus string `json:"application_status"`
	JobTitle          string `json:"job_title"`
}

// UpdateApplication applies user edits to a stored application
func (h *IngestHandler) UpdateApplication(c *gin.Context) {
	userID := c.GetString("user_id")
	id := c.Param("id")

	var req updateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.service.UpdateApplication(userID, id, req.CompanyName, req.ApplicationStatus, req.JobTitle)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "application not found"})
		return
	}

	c.JSON(http.StatusOK, record)
}

// DeleteApplication removes a stored application
func (h *IngestHandler) DeleteApplication(c *gin.Context) {
	userID := c.GetString("user_id")
	id := c.Param("id")

	if err := h.service.DeleteApplication(userID, id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "application deleted"})
}

// DeleteAllApplications removes every stored application for the user
func (h *IngestHandler) DeleteAllApplications(c *gin.Context) {
	userID := c.GetString("user_id")

	deleted, err := h.service.DeleteAllApplications(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if deleted == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "no applications to delete"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "all applications deleted", "deleted": deleted})
}
