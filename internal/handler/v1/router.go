package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/medvault/medvault/internal/audit"
	"github.com/medvault/medvault/internal/config"
	"github.com/medvault/medvault/internal/ledger"
	"github.com/medvault/medvault/internal/service"
	"github.com/medvault/medvault/pkg/auth"
	"github.com/medvault/medvault/pkg/metrics"
)

type Handler struct {
	ledger   *ledger.Ledger
	tokenSvc *service.TokenService
	events   audit.Reader // nil when the durable store is disabled
	col      *metrics.Collector
	log      *zap.Logger
}

func NewHandler(l *ledger.Ledger, tokenSvc *service.TokenService, events audit.Reader, col *metrics.Collector, log *zap.Logger) *Handler {
	return &Handler{
		ledger:   l,
		tokenSvc: tokenSvc,
		events:   events,
		col:      col,
		log:      log,
	}
}

// NewRouter wires the complete public call surface. Every record-store
// operation sits behind RequireAuth; grant existence, provider lookup,
// and the record counter are public reads.
func (h *Handler) NewRouter(cfg *config.Config, jwtManager *auth.JWTManager) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(Trace(cfg.Tracing.ServiceName))
	r.Use(Metrics(h.col))
	r.Use(CORS(cfg.CORS))
	r.Use(RateLimit(cfg.RateLimit, h.col))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	api := r.Group("/v1")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/token", h.issueToken)
		authGroup.POST("/refresh", h.refreshToken)
	}

	protected := api.Group("", RequireAuth(jwtManager))
	{
		protected.POST("/patients", h.registerPatient)
		protected.GET("/patients/me", h.getMyInfo)
		protected.POST("/providers", h.registerProvider)

		protected.POST("/access/grants", h.grantAccess)
		protected.DELETE("/access/grants/:provider", h.revokeAccess)

		protected.POST("/patients/:address/records", h.addMedicalRecord)
		protected.GET("/patients/:address/records", h.getPatientRecords)
		protected.GET("/patients/:address/records/:id", h.getMedicalRecord)
		protected.POST("/patients/:address/records/:id/access", h.accessMedicalRecord)

		protected.GET("/audit/events", h.listAuditEvents)
	}

	// Pure lookups: public by design. Grant existence and the global
	// counter are queryable by anyone; record contents are not.
	api.GET("/providers/:address", h.isRegisteredProvider)
	api.GET("/access/:patient/:provider", h.hasAccess)
	api.GET("/records/total", h.getTotalRecords)

	return r
}
