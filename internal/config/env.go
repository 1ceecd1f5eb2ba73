package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// lookup returns the trimmed value of key; ok is false when it is unset
// or blank.
func lookup(key string) (v string, ok bool) {
	v = strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

// must retrieves a required variable and exits when it is missing.
func must(key string) string {
	v, ok := lookup(key)
	if !ok {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(key, def string) string {
	if v, ok := lookup(key); ok {
		return v
	}
	return def
}

// envBool understands strconv.ParseBool plus yes/no/on/off.
func envBool(key string, def bool) bool {
	v, ok := lookup(key)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return def
}

func envInt(key string, def int) int {
	v, ok := lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// envDur accepts Go durations ("90s", "2h") and bare numbers of seconds.
func envDur(key string, def time.Duration) time.Duration {
	v, ok := lookup(key)
	if !ok {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return def
}
