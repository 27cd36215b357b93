package health

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"api-boilerplate/internal/health"
	"api-boilerplate/internal/http/httperr"
	"api-boilerplate/internal/router"
)

const checkTimeout = 3 * time.Second

func init() {
	router.Register(func(r *router.Routes, deps *router.Deps) {
		h := &handler{checkers: deps.Checkers}
		r.GET("/health", router.Doc{Summary: "Service health"}, h.health)
	})
}

type handler struct {
	checkers []health.Checker
}

// health answers {"status":"ok"} for liveness probes. With ?full=true it
// aggregates the dependency checks and returns 503 when any of them fails.
func (h *handler) health(c *gin.Context) {
	full, err := strconv.ParseBool(c.DefaultQuery("full", "false"))
	if err != nil {
		_ = c.Error(httperr.BadRequest("invalid flag full"))
		return
	}
	if !full {
		c.JSON(http.StatusOK, gin.H{"status": health.StatusOK})
		return
	}

	report := health.Aggregate(c.Request.Context(), checkTimeout, h.checkers...)
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}
