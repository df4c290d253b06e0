package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tronscan-crawler/internal/config"
)

func TestNewRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	want := map[string]bool{"from-file": false, "from-db": false, "track-wallets": false, "migrate": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}

	if cmd.PersistentFlags().Lookup("config") == nil {
		t.Error("missing --config flag")
	}
}

func TestReadAddresses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contracts.txt")
	body := "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t\n\n  TEkxiTehnzSmSe2XqrBj4w32RUN966rdz8\tTXLAQ63Xg1NAzckPwKHvzw7CSEmLMEqcdj \n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := readAddresses(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 addresses, got %d: %v", len(got), got)
	}
	if got[2] != "TXLAQ63Xg1NAzckPwKHvzw7CSEmLMEqcdj" {
		t.Errorf("unexpected last address %q", got[2])
	}

	if _, err := readAddresses(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseMinutes(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"30", 30, false},
		{" 5 ", 5, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"ten", 0, true},
		{"1.5", 0, true},
	}

	for _, tt := range tests {
		got, err := parseMinutes(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tt.input)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("%q: expected %d, got %d (%v)", tt.input, tt.want, got, err)
		}
	}
}

func TestTrackWallets_RejectsBadInterval(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"track-wallets", "soon"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for non-numeric interval")
	}
}

func TestFromDB_RequiresAPIKey(t *testing.T) {
	t.Setenv("API_KEY", "")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/crawler")
	t.Setenv("LOG_ENVIRONMENT", "development")

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"from-db"})

	err := cmd.Execute()
	if !errors.Is(err, config.ErrMissingAPIKey) {
		t.Fatalf("expected %v, got %v", config.ErrMissingAPIKey, err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	body := "# comment\nCRAWLER_TEST_A=from-file\nCRAWLER_TEST_B = spaced \nmalformed\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CRAWLER_TEST_A", "preset")
	t.Setenv("CRAWLER_TEST_B", "")

	loadEnvFile(path)

	if got := os.Getenv("CRAWLER_TEST_A"); got != "preset" {
		t.Errorf("existing value overridden: %q", got)
	}
	if got := os.Getenv("CRAWLER_TEST_B"); got != "spaced" {
		t.Errorf("expected trimmed value, got %q", got)
	}
}
