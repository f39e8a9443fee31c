package dotenv

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileMissingFileIsNoop(t *testing.T) {
	if err := LoadFile(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("LoadFile missing file: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	content := "" +
		"# keys for local development\n" +
		"CARTESIA_API_KEY=from-file\n" +
		"DOUBLE_QUOTED=\"hello world\"\n" +
		"SINGLE_QUOTED='also works'\n" +
		"export EXPORTED=yes\n" +
		"ALREADY_SET=from-file\n" +
		"\n" +
		"not a pair\n" +
		"=no-key\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("ALREADY_SET", "from-environment")
	for _, key := range []string{"CARTESIA_API_KEY", "DOUBLE_QUOTED", "SINGLE_QUOTED", "EXPORTED"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	if err := LoadFile(envPath); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	want := map[string]string{
		"CARTESIA_API_KEY": "from-file",
		"DOUBLE_QUOTED":    "hello world",
		"SINGLE_QUOTED":    "also works",
		"EXPORTED":         "yes",
		"ALREADY_SET":      "from-environment", // process env wins
	}
	for key, value := range want {
		if got := os.Getenv(key); got != value {
			t.Errorf("%s = %q, want %q", key, got, value)
		}
	}
}

func TestLoadFileSkipsMalformedLines(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte("JUSTAWORD\nOK=1\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("OK", "")
	os.Unsetenv("OK")

	if err := LoadFile(envPath); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got := os.Getenv("OK"); got != "1" {
		t.Errorf("OK = %q, want 1", got)
	}
	if _, set := os.LookupEnv("JUSTAWORD"); set {
		t.Error("JUSTAWORD should not be set")
	}
}
