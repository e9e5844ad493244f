package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rmitchellscott/diamondperls/internal/locales"
	"github.com/rmitchellscott/diamondperls/internal/logging"
)

// LocaleHandler handles locale-related HTTP requests
type LocaleHandler struct {
	localeManager *locales.LocaleManager
}

// NewLocaleHandler creates a new locale handler
func NewLocaleHandler(localeManager *locales.LocaleManager) *LocaleHandler {
	return &LocaleHandler{
		localeManager: localeManager,
	}
}

// GetLocaleData returns translation data for a specific locale
func (h *LocaleHandler) GetLocaleData(c *gin.Context) {
	locale := c.Param("locale")
	if !h.localeManager.HasLocale(locale) {
		logging.DebugWithComponent(logging.ComponentLocales, "Locale not found", "locale", locale)
		c.JSON(http.StatusNotFound, gin.H{"error": "locale not found"})
		return
	}

	localeData, err := h.localeManager.GetLocaleJSON(locale)
	if err != nil {
		logging.WarnWithComponent(logging.ComponentLocales, "Failed to encode locale", "locale", locale, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "locale unavailable"})
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "application/json", localeData)
}

// GetAvailableLocales returns a list of all available locales
func (h *LocaleHandler) GetAvailableLocales(c *gin.Context) {
	available := h.localeManager.GetAvailableLocales()

	c.Header("Cache-Control", "public, max-age=3600")
	c.JSON(http.StatusOK, gin.H{
		"locales": available,
		"count":   len(available),
		"default": locales.DefaultLocale,
	})
}

// GetTranslation returns a specific translation for a locale and key
func (h *LocaleHandler) GetTranslation(c *gin.Context) {
	locale := c.Param("locale")
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key parameter is required"})
		return
	}

	translation, found := h.localeManager.GetTranslation(locale, key)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "translation not found"})
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.JSON(http.StatusOK, gin.H{
		"locale":      locale,
		"key":         key,
		"translation": translation,
	})
}

// RegisterLocaleRoutes registers all locale-related routes
func RegisterLocaleRoutes(r *gin.Engine, localeManager *locales.LocaleManager) {
	handler := NewLocaleHandler(localeManager)

	localeGroup := r.Group("/api/locales")
	{
		localeGroup.GET("", handler.GetAvailableLocales)
		localeGroup.GET("/:locale", handler.GetLocaleData)
		localeGroup.GET("/:locale/translate", handler.GetTranslation)
	}
}

// Localizer renders API messages in the caller's language.
type Localizer struct {
	lm       *locales.LocaleManager
	fallback string
}

// NewLocalizer uses fallback when a request names no known language.
func NewLocalizer(lm *locales.LocaleManager, fallback string) *Localizer {
	return &Localizer{lm: lm, fallback: fallback}
}

// RequestLocale picks the locale from the lang query parameter, then the
// first known Accept-Language tag, then the fallback.
func (l *Localizer) RequestLocale(c *gin.Context) string {
	if lang := c.Query("lang"); lang != "" && l.lm.HasLocale(lang) {
		return lang
	}
	for _, part := range strings.Split(c.GetHeader("Accept-Language"), ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if tag != "" && tag != "*" && l.lm.HasLocale(tag) {
			return tag
		}
	}
	return l.fallback
}

func (l *Localizer) message(c *gin.Context, key string) gin.H {
	return gin.H{
		"error":   key,
		"message": l.lm.T(l.RequestLocale(c), key),
	}
}
