package commands

import (
	"strings"
	"testing"
)

func TestChunkLines(t *testing.T) {
	entries := []string{strings.Repeat("a", 6), strings.Repeat("b", 3), strings.Repeat("c", 4), strings.Repeat("d", 12)}
	got := chunkLines(entries, 10)
	want := []string{"aaaaaa\nbbb", "cccc", strings.Repeat("d", 12)}
	if len(got) != len(want) {
		t.Fatalf("chunks = %q, want %q", got, want)
	}
	for n := range want {
		if got[n] != want[n] {
			t.Errorf("chunk %d = %q, want %q", n, got[n], want[n])
		}
	}
}

func TestChunkLinesEmpty(t *testing.T) {
	if got := chunkLines(nil, 10); len(got) != 0 {
		t.Fatalf("chunks = %q", got)
	}
}
