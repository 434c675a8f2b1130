package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const testConfig = `
log:
  level: error
seed:
  - id: c1
    user_id: u1
    partner_one: Alice
    partner_two: Bob
    guests: [Carol]
  - id: c2
    user_id: u2
    partner_one: Eve
    partner_two: Frank
`

func writeConfig(t *testing.T, data string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "couplecache.yaml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "given users",
			args: []string{"u1", "u9"},
			want: []string{
				"u1: Alice & Bob (c1) guests=1",
				"u9: no couple",
				"hits=1 misses=3 joins=0 loads=3 failures=2",
			},
		},
		{
			name: "seeded users",
			args: nil,
			want: []string{
				"u1: Alice & Bob (c1) guests=1",
				"u2: Eve & Frank (c2) guests=0",
				"hits=2 misses=2 joins=0 loads=2 failures=0",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var stdout, stderr bytes.Buffer
			args := append([]string{"-config", writeConfig(t, testConfig)}, tt.args...)
			if err := run(t.Context(), args, &stdout, &stderr); err != nil {
				t.Fatalf("run() error = %v, stderr = %q", err, stderr.String())
			}

			got := strings.Split(strings.TrimSpace(stdout.String()), "\n")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRun_MissingConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "couplecache.yaml")
	var stdout, stderr bytes.Buffer
	if err := run(t.Context(), []string{"-config", path}, &stdout, &stderr); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("default config was not written: %v", err)
	}
	if got := stdout.String(); got != "hits=0 misses=0 joins=0 loads=0 failures=0\n" {
		t.Errorf("stdout = %q", got)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run(t.Context(), []string{"-config", writeConfig(t, "cache:\n  ttl: 0s")}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "cache.ttl") {
		t.Errorf("run() error = %v, want a cache.ttl error", err)
	}
}

func TestRun_BadFlag(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if err := run(t.Context(), []string{"-nope"}, &stdout, &stderr); err == nil {
		t.Error("run() must reject unknown flags")
	}
}
