package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coreplane/tenantd/internal/app"
	"github.com/coreplane/tenantd/internal/monitoring"
	"github.com/coreplane/tenantd/pkg/response"
)

func registerMonitoringRoutes(r *gin.Engine, cfg *app.Config, mon *monitoring.Module) {
	if cfg == nil || mon == nil {
		return
	}

	api := r.Group("/api")
	api.GET("/monitoring/summary", func(c *gin.Context) {
		response.Success(c, http.StatusOK, monitoring.Snapshot())
	})

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(mon.Handler()))
	}
}
