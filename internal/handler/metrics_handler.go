package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/database"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/response"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/telemetry"
)

// MetricsHandler exposes instrument totals and pool statistics
type MetricsHandler struct {
	meter *telemetry.MeterSnapshot
	db    *database.PostgresDB
}

// NewMetricsHandler creates a new MetricsHandler; db may be nil
func NewMetricsHandler(meter *telemetry.MeterSnapshot, db *database.PostgresDB) *MetricsHandler {
	return &MetricsHandler{meter: meter, db: db}
}

// Metrics handles GET /metrics
func (h *MetricsHandler) Metrics(c *gin.Context) {
	values, err := h.meter.Collect(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	body := gin.H{"instruments": values}
	if h.db != nil {
		stats := h.db.Stats()
		body["db_pool"] = gin.H{
			"total_conns":    stats.TotalConns(),
			"acquired_conns": stats.AcquiredConns(),
			"idle_conns":     stats.IdleConns(),
			"max_conns":      stats.MaxConns(),
		}
	}
	c.JSON(http.StatusOK, body)
}
