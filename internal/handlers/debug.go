package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Sabit205/chat-app-serve/internal/telemetry"
)

// RegisterDebugRoutes wires endpoints meant for manual verification in
// development environments.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, enabled bool) {
	if !enabled {
		return
	}

	debug := router.Group("/debug")
	debug.GET("/audit-test", func(c *gin.Context) {
		emitter.Info(c.Request.Context(), "audit test", requestIDFromContext(c), userIDFromContext(c))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
