package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate points the XDG dirs and the working directory at a temp dir and
// clears the overrides
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_DATA_HOME", dir)
	for _, k := range []string{EnvURL, EnvToken, EnvUser, EnvSite} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	chdir(t, dir)
	return dir
}

func write(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	t.Setenv(EnvURL, "https://org.crm.dynamics.com")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dataverse.PageSize != 5000 || cfg.Dataverse.Timeout != 30*time.Second || cfg.Range != "12months" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Dataverse.URL != "https://org.crm.dynamics.com" {
		t.Errorf("url = %q", cfg.Dataverse.URL)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := isolate(t)
	write(t, filepath.Join(dir, "fpboard", "config.yml"), `
dataverse:
  url: https://file.crm.dynamics.com
  token: from-file
  page_size: 250
  timeout: 5s
user:
  id: "{0F8FAD5B-D9CB-469F-A165-70867728950E}"
site: Geita
range: all
`)
	t.Setenv(EnvToken, "from-env")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dataverse.Token != "from-env" {
		t.Errorf("env should win, token = %q", cfg.Dataverse.Token)
	}
	if cfg.Dataverse.PageSize != 250 || cfg.Dataverse.Timeout != 5*time.Second {
		t.Errorf("dataverse = %+v", cfg.Dataverse)
	}
	if cfg.User.ID != "0f8fad5b-d9cb-469f-a165-70867728950e" {
		t.Errorf("user id = %q", cfg.User.ID)
	}
	if cfg.Site != "Geita" || cfg.Range != "all" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadUserEnv(t *testing.T) {
	isolate(t)
	t.Setenv(EnvURL, "https://org.crm.dynamics.com")
	t.Setenv(EnvUser, "dana@example.com")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.User.Email != "dana@example.com" || cfg.User.ID != "" {
		t.Errorf("user = %+v", cfg.User)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	write(t, filepath.Join(dir, ".env"), "FPBOARD_URL=https://dotenv.crm.dynamics.com\n")
	t.Cleanup(func() { os.Unsetenv(EnvURL) })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dataverse.URL != "https://dotenv.crm.dynamics.com" {
		t.Errorf("url = %q", cfg.Dataverse.URL)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := isolate(t)

	if _, err := Load(filepath.Join(dir, "missing.yml")); err == nil {
		t.Error("explicit missing file should fail")
	}

	if _, err := Load(""); !errors.Is(err, ErrURLRequired) {
		t.Errorf("online without url: %v", err)
	}

	tests := map[string]string{
		"bad range":     "offline: true\nrange: forever\n",
		"bad url":       "dataverse:\n  url: not a url\n",
		"bad page size": "offline: true\ndataverse:\n  page_size: 9000\n",
		"bad email":     "offline: true\nuser:\n  email: nope\n",
		"bad yaml":      "dataverse: [\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yml")
			write(t, path, body)
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}

	path := filepath.Join(dir, "offline.yml")
	write(t, path, "offline: true\n")
	if _, err := Load(path); err != nil {
		t.Errorf("offline needs no url: %v", err)
	}

	// Read leaves validation to the caller
	cfg, err := Read("")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	cfg.Offline = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("offline override: %v", err)
	}
}

func TestDataDir(t *testing.T) {
	dir := isolate(t)
	got, err := DataDir()
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(dir, "fpboard") {
		t.Errorf("DataDir = %q", got)
	}
	if fi, err := os.Stat(got); err != nil || !fi.IsDir() {
		t.Error("DataDir should create the directory")
	}
}

// chdir changes the working directory for the rest of the test and restores
// it afterwards (testing.T.Chdir needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(old) })
}
