package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PageHandler serves the shell payload the web app hydrates each page
// from. Every locale-prefixed route resolves to one of these; the guard
// in front decides whether the shell is reachable at all.
type PageHandler struct {
	defaultLocale string
	locales       []string
}

// NewPageHandler creates a new page handler
func NewPageHandler(locales []string, defaultLocale string) *PageHandler {
	return &PageHandler{
		defaultLocale: defaultLocale,
		locales:       locales,
	}
}

// Shell returns the handler for one named page.
func (h *PageHandler) Shell(page string) gin.HandlerFunc {
	return func(c *gin.Context) {
		locale := c.Param("locale")
		if !localeSupported(locale, h.locales) {
			locale = h.defaultLocale
		}

		var snapshot gin.H
		if manager := ManagerFrom(c); manager != nil {
			snap := manager.Snapshot()
			snapshot = gin.H{
				"user":       snap.User,
				"isLoggedIn": snap.IsLoggedIn,
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"page":    page,
			"locale":  locale,
			"session": snapshot,
		})
	}
}
