package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRequire(t *testing.T) {
	t.Setenv("DORA_TEST_A", "")
	t.Setenv("DORA_TEST_B", " secret ")

	v, err := Require("testing", "DORA_TEST_A", "DORA_TEST_B")
	if err != nil {
		t.Fatalf("Require() error = %v", err)
	}
	if v != "secret" {
		t.Errorf("Require() = %q, want secret", v)
	}

	t.Setenv("DORA_TEST_B", "")
	_, err = Require("transcription", "DORA_TEST_A", "DORA_TEST_B")
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
	var credErr *CredentialError
	if !errors.As(err, &credErr) || credErr.Var != "DORA_TEST_A" {
		t.Errorf("unexpected error: %#v", err)
	}
	if credErr.Error() != "DORA_TEST_A environment variable is required for transcription" {
		t.Errorf("message = %q", credErr.Error())
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("DORA_TEST_BOOL", "true")
	t.Setenv("DORA_TEST_BAD", "nope")
	t.Setenv("DORA_TEST_DUR", "1500ms")

	if !EnvBool("DORA_TEST_BOOL", false) {
		t.Error("EnvBool should parse true")
	}
	if !EnvBool("DORA_TEST_BAD", true) {
		t.Error("EnvBool should fall back on invalid values")
	}
	if got := EnvDuration("DORA_TEST_DUR", 0); got != 1500*time.Millisecond {
		t.Errorf("EnvDuration = %v", got)
	}
	if got := EnvOr("DORA_TEST_UNSET_VAR", "x"); got != "x" {
		t.Errorf("EnvOr = %q", got)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("DORA_DOTENV_KEY=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DORA_DOTENV_KEY", "")
	os.Unsetenv("DORA_DOTENV_KEY")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("DORA_DOTENV_KEY"); got != "from-file" {
		t.Errorf("DORA_DOTENV_KEY = %q", got)
	}
}

func TestLoadFile(t *testing.T) {
	type cfg struct {
		Name  string `yaml:"name"`
		Count int    `yaml:"count"`
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "dora.yaml")
	if err := os.WriteFile(path, []byte("name: dora\ncount: 3\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	var c cfg
	if err := LoadFile(path, &c, false); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if c.Name != "dora" || c.Count != 3 {
		t.Errorf("LoadFile() = %+v", c)
	}

	if err := LoadFile(filepath.Join(dir, "nope.yaml"), &c, true); err != nil {
		t.Errorf("optional missing file should be nil, got %v", err)
	}
	if err := LoadFile(filepath.Join(dir, "nope.yaml"), &c, false); err == nil {
		t.Error("required missing file should error")
	}
}
