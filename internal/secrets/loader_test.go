package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("writing key file: %v", err)
	}
	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, []byte("\n"), 0o600); err != nil {
		t.Fatalf("writing empty file: %v", err)
	}

	t.Setenv("HH_INTERVIEWER_TEST_KEY", " from-env ")

	tests := []struct {
		name   string
		src    Source
		expect string
		errMsg string
	}{
		{name: "file wins", src: Source{File: keyFile, Value: "inline", Env: "HH_INTERVIEWER_TEST_KEY"}, expect: "from-file"},
		{name: "inline value", src: Source{Value: " inline ", Env: "HH_INTERVIEWER_TEST_KEY"}, expect: "inline"},
		{name: "env fallback", src: Source{Env: "HH_INTERVIEWER_TEST_KEY"}, expect: "from-env"},
		{name: "empty file", src: Source{Name: "api key", File: emptyFile}, errMsg: "api key file"},
		{name: "missing file", src: Source{File: filepath.Join(dir, "nope")}, errMsg: "reading secret"},
		{name: "unset env", src: Source{Name: "api key", Env: "HH_INTERVIEWER_TEST_UNSET"}, errMsg: "HH_INTERVIEWER_TEST_UNSET is empty"},
		{name: "nothing configured", src: Source{}, errMsg: "secret is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if tt.errMsg != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
					t.Fatalf("expected error containing %q, got %v", tt.errMsg, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}
