package api

import (
	"net/http"

	authUsecase "jobtrail-backend/internal/auth/usecase"
	ingestUsecase "jobtrail-backend/internal/ingest/usecase"
	"jobtrail-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase   authUsecase.AuthUsecase
	ingestService *ingestUsecase.IngestService
	config        *config.Config
}

func NewHandler(authUc authUsecase.AuthUsecase, ingestService *ingestUsecase.IngestService, cfg *config.Config) *Handler {
	return &Handler{
		authUsecase:   authUc,
		ingestService: ingestService,
		config:        cfg,
	}
}

func (h *Handler) Start(addr string) error {
	if h.config.IsPubliclyDeployed() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.authUsecase, h.ingestService)

	return r.Run(addr)
}
