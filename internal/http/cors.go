package http

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// corsPreflightMaxAge bounds how long a browser caches a preflight answer.
const corsPreflightMaxAge = 10 * time.Minute

// adminCORS returns the CORS middleware for the admin API, or nil when cross-origin
// access stays off. The list is comma separated; "*" admits any origin.
func adminCORS(enabled bool, allowOrigins string, logger *slog.Logger) gin.HandlerFunc {
	if !enabled {
		return nil
	}

	origins := splitOrigins(allowOrigins)
	if len(origins) == 0 {
		logger.Warn("CORS_ENABLED is set but CORS_ALLOW_ORIGINS is empty, skipping CORS")
		return nil
	}

	cfg := cors.Config{
		AllowMethods:  []string{"GET", "PUT", "DELETE"},
		AllowHeaders:  []string{"Authorization", "Content-Type"},
		ExposeHeaders: []string{"X-Request-Id"},
		// The admin token travels in a header, never in a cookie.
		AllowCredentials: false,
		MaxAge:           corsPreflightMaxAge,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}

	logger.Info("admin api CORS enabled", slog.Any("origins", origins))
	return cors.New(cfg)
}

func splitOrigins(raw string) []string {
	var origins []string
	for origin := range strings.SplitSeq(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" && !slices.Contains(origins, origin) {
			origins = append(origins, origin)
		}
	}
	return origins
}
