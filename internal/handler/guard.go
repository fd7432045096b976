package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/youthloop/webgate/internal/dto"
	"github.com/youthloop/webgate/internal/utils"
	"github.com/youthloop/webgate/pkg/observability"
)

// GuardConfig configures the route guard.
type GuardConfig struct {
	// RequireAuth redirects anonymous sessions away from the route.
	RequireAuth bool
	// RedirectTo is the target page, locale-prefixed on the fly.
	// Defaults to /login.
	RedirectTo string
	// Locales are the recognized locale segments; DefaultLocale is used
	// when the route carries none.
	Locales       []string
	DefaultLocale string
	Metrics       *observability.SessionMetrics
}

// Guard is the single route guard for locale-prefixed pages. It runs on
// every request, so a session that expired mid-visit is redirected on
// its next hit. Protected handlers never run for anonymous sessions; the
// redirect response doubles as the "redirecting" placeholder.
func Guard(cfg GuardConfig) gin.HandlerFunc {
	redirectTo := cfg.RedirectTo
	if redirectTo == "" {
		redirectTo = "/login"
	}

	return func(c *gin.Context) {
		manager := ManagerFrom(c)
		if manager == nil {
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
				Error:   "Internal server error",
				Message: "session middleware not installed",
			})
			c.Abort()
			return
		}

		snap := manager.Snapshot()

		// Never flash protected content before the session settles.
		if snap.Loading {
			c.Header("Retry-After", "1")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "loading"})
			c.Abort()
			return
		}

		if cfg.RequireAuth && !snap.IsLoggedIn {
			locale := c.Param("locale")
			if !localeSupported(locale, cfg.Locales) {
				locale = cfg.DefaultLocale
			}
			target := utils.LocalizePath(redirectTo, locale, cfg.Locales)

			if cfg.Metrics != nil {
				cfg.Metrics.Add(c.Request.Context(), cfg.Metrics.GuardRedirects, 1)
			}

			c.Redirect(http.StatusSeeOther, target)
			c.Abort()
			return
		}

		c.Next()
	}
}

func localeSupported(locale string, supported []string) bool {
	for _, loc := range supported {
		if locale == loc {
			return true
		}
	}
	return false
}
