package locales

import (
	"embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed *.yml
var localeFiles embed.FS

// DefaultLocale is used when a requested locale has no translation.
const DefaultLocale = "de"

// LocaleManager holds the report translations and provides lookups
type LocaleManager struct {
	translations map[string]map[string]interface{}
	mutex        sync.RWMutex
}

var (
	defaultManager     *LocaleManager
	defaultManagerErr  error
	defaultManagerOnce sync.Once
)

// Default returns a process-wide manager loaded from the embedded files.
func Default() (*LocaleManager, error) {
	defaultManagerOnce.Do(func() {
		defaultManager, defaultManagerErr = NewLocaleManager()
	})
	return defaultManager, defaultManagerErr
}

// NewLocaleManager creates a new locale manager and loads all embedded locale files
func NewLocaleManager() (*LocaleManager, error) {
	lm := &LocaleManager{
		translations: make(map[string]map[string]interface{}),
	}

	if err := lm.loadEmbeddedLocales(); err != nil {
		return nil, fmt.Errorf("failed to load embedded locales: %w", err)
	}

	return lm, nil
}

func (lm *LocaleManager) loadEmbeddedLocales() error {
	entries, err := localeFiles.ReadDir(".")
	if err != nil {
		return fmt.Errorf("failed to read embedded locale directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yml") {
			continue
		}

		// "de.yml" -> "de"
		locale := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))

		data, err := localeFiles.ReadFile(entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read locale file %s: %w", entry.Name(), err)
		}

		if err := lm.Load(locale, data); err != nil {
			return err
		}
	}

	return nil
}

// Load parses YAML translations for locale, replacing any existing set.
func (lm *LocaleManager) Load(locale string, data []byte) error {
	var translations map[string]interface{}
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return fmt.Errorf("failed to parse YAML for locale %s: %w", locale, err)
	}
	if translations == nil {
		translations = make(map[string]interface{})
	}

	lm.mutex.Lock()
	lm.translations[strings.ToLower(locale)] = translations
	lm.mutex.Unlock()
	return nil
}

// resolve returns the translation sets to search for locale, most specific first.
func (lm *LocaleManager) resolve(locale string) []map[string]interface{} {
	locale = strings.ToLower(strings.TrimSpace(locale))
	candidates := []string{locale, normalizeLocale(locale), DefaultLocale}

	var sets []map[string]interface{}
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		if t, ok := lm.translations[c]; ok {
			sets = append(sets, t)
		}
	}
	return sets
}

// GetTranslation retrieves a translation for a given locale and key
func (lm *LocaleManager) GetTranslation(locale, key string) (string, bool) {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()

	for _, translations := range lm.resolve(locale) {
		if value, found := getNestedValue(translations, key); found {
			return value, true
		}
	}
	return "", false
}

// T returns the translation for key, or key itself when none exists.
func (lm *LocaleManager) T(locale, key string) string {
	if value, ok := lm.GetTranslation(locale, key); ok {
		return value
	}
	return key
}

// HasLocale reports whether locale or its base language is available.
func (lm *LocaleManager) HasLocale(locale string) bool {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()

	locale = strings.ToLower(strings.TrimSpace(locale))
	if _, ok := lm.translations[locale]; ok {
		return true
	}
	_, ok := lm.translations[normalizeLocale(locale)]
	return ok
}

// GetLocaleJSON returns the complete translation data for a locale as JSON
func (lm *LocaleManager) GetLocaleJSON(locale string) ([]byte, error) {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()

	sets := lm.resolve(locale)
	if len(sets) == 0 {
		return nil, fmt.Errorf("locale %s not found", locale)
	}
	return json.Marshal(sets[0])
}

// GetAvailableLocales returns the sorted list of loaded locale codes
func (lm *LocaleManager) GetAvailableLocales() []string {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()

	locales := make([]string, 0, len(lm.translations))
	for locale := range lm.translations {
		locales = append(locales, locale)
	}
	sort.Strings(locales)

	return locales
}

// normalizeLocale converts locale codes like "de-AT" or "en_US" to the base language
func normalizeLocale(locale string) string {
	if idx := strings.IndexAny(locale, "-_"); idx != -1 {
		return locale[:idx]
	}
	return locale
}

// getNestedValue retrieves a value from nested map using dot notation
func getNestedValue(data map[string]interface{}, key string) (string, bool) {
	parts := strings.Split(key, ".")
	current := data

	for i, part := range parts {
		value, exists := current[part]
		if !exists {
			return "", false
		}
		if i == len(parts)-1 {
			strValue, ok := value.(string)
			return strValue, ok
		}
		next, ok := value.(map[string]interface{})
		if !ok {
			return "", false
		}
		current = next
	}

	return "", false
}
