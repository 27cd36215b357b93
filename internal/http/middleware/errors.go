package middleware

import (
	"fmt"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"api-boilerplate/internal/http/httperr"
)

// ErrorHandler renders the last error a handler attached with c.Error, unless
// the handler already wrote a response.
func ErrorHandler(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		log := logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"request_id": GetRequestID(c),
		})

		if e, ok := httperr.As(err); ok {
			for k, v := range e.Headers {
				c.Header(k, v)
			}
			if e.Unauthenticated {
				log.WithError(err).Warn("authentication failed")
				c.JSON(http.StatusUnauthorized, gin.H{
					"detail":  "Authentication required",
					"error":   "UNAUTHORIZED",
					"message": "Valid authentication credentials are required to access this resource",
				})
				return
			}
			if e.Status >= http.StatusInternalServerError {
				log.WithError(err).Errorf("http error %d", e.Status)
			} else {
				log.WithError(err).Warnf("http error %d", e.Status)
			}
			c.JSON(e.Status, gin.H{"detail": e.Detail})
			return
		}

		log.WithError(err).Error("internal server error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"detail": fmt.Sprintf("%s: %v", typeName(err), err),
		})
	}
}

// Recovery turns panics into the same 500 body as unhandled errors.
func Recovery(logger logrus.FieldLogger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"request_id": GetRequestID(c),
		}).Errorf("panic recovered: %v", recovered)

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"detail": fmt.Sprintf("panic: %v", recovered),
		})
	})
}

func typeName(err error) string {
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}
