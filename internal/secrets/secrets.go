// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files and
// resolves the Gemini API key from the configured sources. Each file in the
// directory is one secret: the filename is the key name and the trimmed
// contents are the value.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultDir is the secrets directory read by the CLI.
const DefaultDir = ".secrets"

// GeminiKeyFile is the secrets file holding the Gemini API key.
const GeminiKeyFile = "gemini-api-key"

// apiKeyEnv lists the environment variables checked for the API key, in order.
var apiKeyEnv = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}

// Load reads all files in dir and returns a map of filename to trimmed
// contents. A missing directory is not an error. Unreadable files are
// logged and skipped.
func Load(dir string, logger logrus.FieldLogger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.WithField("secret", name).WithError(err).Warn("could not read secret")
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// ResolveAPIKey picks the Gemini API key: the configured value first, then
// the gemini-api-key secret, then GEMINI_API_KEY and GOOGLE_API_KEY. It
// returns the key and a description of where it came from, or two empty
// strings when no source has one.
func ResolveAPIKey(configured string, loaded map[string]string, getenv func(string) string) (key, source string) {
	if v := strings.TrimSpace(configured); v != "" {
		return v, "config"
	}
	if v := loaded[GeminiKeyFile]; v != "" {
		return v, filepath.Join(DefaultDir, GeminiKeyFile)
	}
	for _, name := range apiKeyEnv {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			return v, name
		}
	}
	return "", ""
}
