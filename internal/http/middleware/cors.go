package middleware

import (
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"api-boilerplate/internal/config"
)

var (
	defaultMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	defaultHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader}
)

// CORS answers preflight requests and decorates responses for allowed
// origins. Origins may be "*", exact values or "*.domain" wildcards.
func CORS(cfg config.CORS) gin.HandlerFunc {
	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// browsers ignore a literal "*" once credentials are allowed
	methods := cfg.AllowMethods
	if len(methods) == 0 || slices.Contains(methods, "*") {
		methods = defaultMethods
	}
	headers := cfg.AllowHeaders
	if len(headers) == 0 || slices.Contains(headers, "*") {
		headers = defaultHeaders
	}

	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return OriginAllowed(origins, origin)
		},
		AllowMethods:     methods,
		AllowHeaders:     headers,
		ExposeHeaders:    []string{"Content-Disposition", RequestIDHeader},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           24 * time.Hour,
	})
}

// OriginAllowed reports whether origin matches one of the allowed entries.
func OriginAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	host := origin
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		host = u.Hostname()
	}

	for _, a := range allowed {
		switch {
		case a == "*":
			return true
		case a == origin:
			return true
		case strings.HasPrefix(a, "*."):
			if strings.HasSuffix(host, a[1:]) {
				return true
			}
		}
	}
	return false
}
