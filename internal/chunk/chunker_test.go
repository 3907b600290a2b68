package chunk_test

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/orgbridge/go-orgbridge/internal/chunk"
)

// joinChunks reassembles chunked text by trimming from each chunk the
// longest prefix (at most overlap bytes) it shares with the previous
// chunk's suffix. Boundary adjustment can shrink the actual overlap below
// the requested overlap, including to zero.
func joinChunks(chunks []string, overlap int) string {
	var b strings.Builder
	for i, c := range chunks {
		if i == 0 {
			b.WriteString(c)
			continue
		}
		prev := chunks[i-1]
		k := min(overlap, len(prev), len(c))
		for k > 0 && prev[len(prev)-k:] != c[:k] {
			k--
		}
		b.WriteString(c[k:])
	}
	return b.String()
}

func TestSplit_Empty(t *testing.T) {
	chunks, err := chunk.Split("", 1024, 100)
	if err != nil {
		t.Fatalf("Split() error = %v, want nil", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected 0 chunks for empty text, got %d", len(chunks))
	}
}

func TestSplit_InvalidConfig(t *testing.T) {
	tests := []struct {
		name     string
		maxBytes int
		overlap  int
	}{
		{"zero max", 0, 0},
		{"negative max", -1, 0},
		{"negative overlap", 100, -1},
		{"overlap equals max", 100, 100},
		{"overlap exceeds max", 100, 150},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := chunk.Split("hello", tt.maxBytes, tt.overlap)
			if !errors.Is(err, chunk.ErrInvalidConfig) {
				t.Fatalf("Split(%d, %d) error = %v, want ErrInvalidConfig", tt.maxBytes, tt.overlap, err)
			}
			if chunks != nil {
				t.Fatalf("expected nil chunks on config error, got %v", chunks)
			}
		})
	}
}

func TestSplit_SingleChunk(t *testing.T) {
	chunks, err := chunk.Split("hello", 1024, 100)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Fatalf("expected [hello], got %v", chunks)
	}
}

func TestSplit_ExactWindow(t *testing.T) {
	chunks, err := chunk.Split("hello", 5, 2)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Fatalf("expected a single chunk when text fits the window, got %v", chunks)
	}
}

func TestSplit_HelloWorld(t *testing.T) {
	const text = "hello world"
	chunks, err := chunk.Split(text, 5, 2)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %v", chunks)
	}
	for i, c := range chunks {
		if c == "" {
			t.Fatalf("chunk %d is empty", i)
		}
		if len(c) > 5 {
			t.Fatalf("chunk %d is %d bytes, want <= 5", i, len(c))
		}
		if !utf8.ValidString(c) {
			t.Fatalf("chunk %d is not valid UTF-8: %q", i, c)
		}
	}
	if got := joinChunks(chunks, 2); got != text {
		t.Fatalf("reconstruction = %q, want %q", got, text)
	}
}

func TestSplit_EmojiBackoff(t *testing.T) {
	// 7 bytes cannot hold two whole 4-byte code points, so every window
	// backs off to a single emoji.
	const emoji = "\U0001F389"
	text := strings.Repeat(emoji, 10)
	chunks, err := chunk.Split(text, 7, 2)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 10 {
		t.Fatalf("expected 10 chunks, got %d: %q", len(chunks), chunks)
	}
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Fatalf("chunk %d is not valid UTF-8: %q", i, c)
		}
		if c != emoji {
			t.Fatalf("chunk %d = %q, want a single emoji", i, c)
		}
	}
	if got := joinChunks(chunks, 2); got != text {
		t.Fatalf("reconstruction does not match input")
	}
}

func TestSplit_StartSnapsForward(t *testing.T) {
	// With 2-byte runes, maxBytes 5 backs each window off to 4 bytes and
	// end-overlap then lands mid-rune, forcing the next start to snap
	// forward to the following boundary.
	text := strings.Repeat("é", 10)
	chunks, err := chunk.Split(text, 5, 1)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Fatalf("chunk %d is not valid UTF-8: %q", i, c)
		}
		if len(c) > 5 {
			t.Fatalf("chunk %d is %d bytes, want <= 5", i, len(c))
		}
	}
	if got := joinChunks(chunks, 1); got != text {
		t.Fatalf("reconstruction = %q, want %q", got, text)
	}
}

func TestSplit_NoProgress(t *testing.T) {
	// Backoff shrinks the first window to 2 bytes ("ab" before the emoji),
	// and a 2-byte overlap then leaves the start offset where it was. The
	// reference behavior here was an infinite loop; we fail instead.
	_, err := chunk.Split("ab\U0001F389cd", 5, 2)
	if !errors.Is(err, chunk.ErrInvalidConfig) {
		t.Fatalf("Split() error = %v, want ErrInvalidConfig", err)
	}
}

func TestSplit_RuneWiderThanWindow(t *testing.T) {
	// A 3-byte window cannot hold a 4-byte emoji. The rune is emitted whole
	// rather than dropped.
	chunks, err := chunk.Split("\U0001F389a", 3, 0)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	want := []string{"\U0001F389", "a"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %q", len(want), len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Fatalf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestSplit_Coverage(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxBytes int
		overlap  int
	}{
		{"ascii small window", "the quick brown fox jumps over the lazy dog", 8, 3},
		{"ascii default window", strings.Repeat("sphinx of black quartz, judge my vow. ", 100), 1024, 100},
		{"mixed two byte runes", "résumés and naïve café patrons", 7, 2},
		{"japanese three byte runes", "日本語のテキストを分割する", 10, 3},
		{"emoji tail", "status update \U0001F389\U0001F680\U0001F4A1 end", 6, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := chunk.Split(tt.text, tt.maxBytes, tt.overlap)
			if err != nil {
				t.Fatalf("Split() error = %v", err)
			}
			if len(chunks) == 0 {
				t.Fatal("expected at least one chunk")
			}
			for i, c := range chunks {
				if c == "" {
					t.Fatalf("chunk %d is empty", i)
				}
				if !utf8.ValidString(c) {
					t.Fatalf("chunk %d is not valid UTF-8: %q", i, c)
				}
				if len(c) > tt.maxBytes {
					t.Fatalf("chunk %d is %d bytes, want <= %d", i, len(c), tt.maxBytes)
				}
			}
			if got := joinChunks(chunks, tt.overlap); got != tt.text {
				t.Fatalf("reconstruction = %q, want %q", got, tt.text)
			}
		})
	}
}

func TestSplit_TerminationBound(t *testing.T) {
	// For ASCII input no boundary adjustment happens, so the chunk count
	// stays within ceil(len/(max-overlap))+1.
	text := strings.Repeat("x", 10000)
	chunks, err := chunk.Split(text, 100, 10)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	bound := (10000+89)/90 + 1
	if len(chunks) > bound {
		t.Fatalf("got %d chunks, want <= %d", len(chunks), bound)
	}
	if got := len(joinChunks(chunks, 10)); got != len(text) {
		t.Fatalf("reconstruction length = %d, want %d", got, len(text))
	}
}
