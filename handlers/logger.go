package handlers

import (
	"seatbook/middleware"
	"seatbook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// getLogger returns the request scoped logger: the one stored on the context,
// or the global one tagged with the route and caller.
func getLogger(c *gin.Context) *zap.Logger {
	if l, exists := c.Get("logger"); exists {
		if logger, ok := l.(*zap.Logger); ok {
			return logger
		}
	}
	fields := []zap.Field{zap.String("path", c.FullPath())}
	if id := c.GetString(middleware.ContextAccountID); id != "" {
		fields = append(fields, zap.String("accountId", id))
	}
	return utils.GetLogger().With(fields...)
}
