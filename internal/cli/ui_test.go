package cli

import (
	"bytes"
	"strings"
	"testing"
)

// captureStdout redirects user-facing output for the rest of the test.
func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

func TestPrintStats(t *testing.T) {
	tests := []struct {
		name     string
		rejected int
		cached   bool
		want     []string
		absent   []string
	}{
		{"fresh", 0, false, []string{"3 nodes", "2 links", "fresh"}, []string{"rejected", "cached"}},
		{"cached with rejections", 1, true, []string{"1 rejected", "cached"}, []string{"fresh"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureStdout(t)
			printStats(3, 2, tt.rejected, tt.cached)
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output %q lacks %q", out, w)
				}
			}
			for _, a := range tt.absent {
				if strings.Contains(out, a) {
					t.Errorf("output %q should not contain %q", out, a)
				}
			}
		})
	}
}

func TestStatusLines(t *testing.T) {
	buf := captureStdout(t)
	printSuccess("wrote %s", "a.svg")
	printWarning("rejected link %s", "a:right-0>b:left-0")
	printError("cycle")
	printKeyValue("roots", "a, t")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	for i, prefix := range []string{"✓ wrote a.svg", "! rejected link", "✗ cycle"} {
		if !strings.HasPrefix(lines[i], prefix) {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], prefix)
		}
	}
	if !strings.HasPrefix(lines[3], "roots") || !strings.HasSuffix(lines[3], "a, t") {
		t.Errorf("key/value line = %q", lines[3])
	}
}
