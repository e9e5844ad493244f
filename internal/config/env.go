// Package config reads settings from the environment and holds the paper
// format table.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// lookup resolves key from the environment, then from the file named by
// key_FILE. Empty values count as unset.
func lookup(key string) (string, bool) {
	if val := os.Getenv(key); val != "" {
		return val, true
	}
	path := os.Getenv(key + "_FILE")
	if path == "" {
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	val := strings.TrimSpace(string(data))
	return val, val != ""
}

// Get returns key's value, or def when it is unset.
func Get(key, def string) string {
	if val, ok := lookup(key); ok {
		return val
	}
	return def
}

// GetInt returns key as an integer. Unparsable values yield def.
func GetInt(key string, def int) int {
	val, ok := lookup(key)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return def
	}
	return i
}

// GetFloat returns key as a float, e.g. a size in millimeters.
func GetFloat(key string, def float64) float64 {
	val, ok := lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return def
	}
	return f
}

var boolWords = map[string]bool{
	"1": true, "t": true, "true": true, "y": true, "yes": true, "on": true,
	"0": false, "f": false, "false": false, "n": false, "no": false, "off": false,
}

// GetBool returns key as a boolean. Words other than 1/0, true/false,
// yes/no and on/off (any case) yield def.
func GetBool(key string, def bool) bool {
	val, ok := lookup(key)
	if !ok {
		return def
	}
	if b, known := boolWords[strings.ToLower(strings.TrimSpace(val))]; known {
		return b
	}
	return def
}

var longUnits = map[string]time.Duration{
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
}

// ParseDuration accepts everything time.ParseDuration does plus whole days
// ("7d") and weeks ("2w").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n := len(s); n > 1 {
		if unit, ok := longUnits[s[n-1:]]; ok {
			if count, err := strconv.Atoi(s[:n-1]); err == nil {
				return time.Duration(count) * unit, nil
			}
		}
	}
	return time.ParseDuration(s)
}

// GetDuration returns key parsed with ParseDuration.
func GetDuration(key string, def time.Duration) time.Duration {
	val, ok := lookup(key)
	if !ok {
		return def
	}
	d, err := ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}
