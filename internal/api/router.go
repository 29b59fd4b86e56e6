package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/coreplane/tenantd/internal/app"
	"github.com/coreplane/tenantd/internal/middleware"
	"github.com/coreplane/tenantd/internal/monitoring"
)

// NewRouter builds the Gin engine, wires middleware and registers the
// operational routes. The server exposes health, readiness and metrics
// endpoints only; the schema itself has no request-facing API.
func NewRouter(db *gorm.DB, cfg *app.Config, mon *monitoring.Module) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	registerHealthRoutes(r, cfg, mon)
	registerMonitoringRoutes(r, cfg, mon)

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
