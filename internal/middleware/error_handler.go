package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/geo-cache-service/internal/domain/dto"
	"github.com/guttosm/geo-cache-service/internal/i18n"
	"github.com/rs/zerolog/log"
)

// ErrorHandler logs errors attached to the gin context and writes a 500
// when the handler left the response empty.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		requestID := GetRequestID(c)
		for _, ginErr := range c.Errors {
			log.Warn().
				Str("request_id", requestID).
				Err(ginErr.Err).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Int("status", c.Writer.Status()).
				Msg("Request error")
		}

		if !c.Writer.Written() {
			message := i18n.GetTranslator().Translate(i18n.ErrKeyInternalError, i18n.GetLocale(c))
			c.JSON(http.StatusInternalServerError, dto.NewError(dto.ErrCodeInternal, message).WithRequestID(requestID))
		}
	}
}
