// Package config provides configuration helpers for go-dora commands.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// a .env file, then the process environment, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Credential environment variables.
const (
	EnvGroqKey       = "GROQ_API_KEY"
	EnvGoogleKey     = "GOOGLE_API_KEY"
	EnvGeminiKey     = "GEMINI_API_KEY"
	EnvElevenLabsKey = "ELEVENLABS_API_KEY"
	EnvOpenAIKey     = "OPENAI_API_KEY"
)

// ErrMissingCredential is matched by every *CredentialError.
var ErrMissingCredential = errors.New("config: missing credential")

// CredentialError reports a required credential that is not set.
type CredentialError struct {
	// Var is the environment variable that should hold the credential.
	Var string
	// Feature is the part of the assistant that needs it.
	Feature string
}

func (e *CredentialError) Error() string {
	if e.Feature == "" {
		return fmt.Sprintf("%s environment variable is required", e.Var)
	}
	return fmt.Sprintf("%s environment variable is required for %s", e.Var, e.Feature)
}

// Is makes errors.Is(err, ErrMissingCredential) true.
func (e *CredentialError) Is(target error) bool {
	return target == ErrMissingCredential
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Variables already set are left alone. Missing files are
// skipped; a file that exists but cannot be parsed is an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Env returns the first non-empty value among the named variables.
func Env(names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(os.Getenv(n)); v != "" {
			return v
		}
	}
	return ""
}

// EnvOr returns the variable's value or def when unset.
func EnvOr(name, def string) string {
	if v := Env(name); v != "" {
		return v
	}
	return def
}

// EnvBool parses a boolean variable, returning def when unset or invalid.
func EnvBool(name string, def bool) bool {
	v := Env(name)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// EnvDuration parses a duration variable ("1.5s", "800ms").
func EnvDuration(name string, def time.Duration) time.Duration {
	v := Env(name)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// Require returns the first non-empty value among names, or a
// *CredentialError naming the first variable.
func Require(feature string, names ...string) (string, error) {
	if v := Env(names...); v != "" {
		return v, nil
	}
	name := ""
	if len(names) > 0 {
		name = names[0]
	}
	return "", &CredentialError{Var: name, Feature: feature}
}
