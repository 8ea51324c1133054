package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"os"
	"path/filepath"
)

var (
	// Pepper is dynamically loaded from a file or generated at runtime.
	pepper     string
	pepperFile string
)

// SetPepperPath configures where the pepper is loaded from (and written to on
// first use). Call before any hashing takes place.
func SetPepperPath(file string) {
	pepperFile = file
}

// GetPepper returns the loaded pepper, loading or generating it on first use.
// A missing pepper file is created with a fresh random value so restarts keep
// verifying existing hashes.
func GetPepper() string {
	if pepper != "" {
		return pepper
	}

	if pepperFile != "" {
		if data, err := os.ReadFile(pepperFile); err == nil && len(data) > 0 {
			pepper = string(data)
			return pepper
		}
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		slog.Error("failed to generate pepper", "error", err)
		return ""
	}
	pepper = base64.RawURLEncoding.EncodeToString(buf)

	if pepperFile != "" {
		if err := os.MkdirAll(filepath.Dir(pepperFile), 0o700); err == nil {
			if err := os.WriteFile(pepperFile, []byte(pepper), 0o600); err != nil {
				slog.Warn("failed to persist pepper file", "path", pepperFile, "error", err)
			}
		}
	}

	return pepper
}
