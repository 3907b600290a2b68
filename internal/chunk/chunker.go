// Package chunk splits text into byte-bounded, UTF-8-safe windows for
// embedding. Offsets are byte offsets into the UTF-8 encoding; boundaries
// are adjusted so no chunk ever bisects a multi-byte code point.
package chunk

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Defaults keep chunks comfortably under the embeddings API token limits.
const (
	DefaultMaxBytes     = 1024
	DefaultOverlapBytes = 100
)

// ErrInvalidConfig reports a chunking configuration that cannot produce
// valid output. It is returned before any of the input is read, except for
// the no-progress case documented on Split.
var ErrInvalidConfig = errors.New("chunk: invalid configuration")

// Split divides text into chunks of at most maxBytes bytes, with
// overlapBytes bytes of the end of each chunk repeated at the start of the
// next. A window that would end inside a multi-byte UTF-8 sequence is backed
// off to the previous rune boundary, and a start offset that lands inside
// one is snapped forward to the next, so the actual overlap between two
// chunks can be shorter than requested. Every chunk is independently valid
// UTF-8. Empty text yields no chunks and no error.
//
// maxBytes must be positive and overlapBytes must be in [0, maxBytes).
// Split also fails with ErrInvalidConfig if boundary adjustment shrinks the
// effective window to the point where the next start offset would not
// advance; it never loops and never silently drops input bytes.
func Split(text string, maxBytes, overlapBytes int) ([]string, error) {
	if maxBytes <= 0 {
		return nil, fmt.Errorf("%w: max bytes must be positive, got %d", ErrInvalidConfig, maxBytes)
	}
	if overlapBytes < 0 {
		return nil, fmt.Errorf("%w: overlap bytes must not be negative, got %d", ErrInvalidConfig, overlapBytes)
	}
	if overlapBytes >= maxBytes {
		return nil, fmt.Errorf("%w: overlap bytes %d must be less than max bytes %d", ErrInvalidConfig, overlapBytes, maxBytes)
	}
	if len(text) == 0 {
		return nil, nil
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + maxBytes
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}

		// Back off a window that ends mid-sequence.
		for end > start && !utf8.RuneStart(text[end]) {
			end--
		}
		if end == start {
			// The rune at start is wider than the whole window. Emit it
			// whole rather than drop bytes; this is the one case where a
			// chunk may exceed maxBytes.
			_, size := utf8.DecodeRuneInString(text[start:])
			end = start + size
			if end >= len(text) {
				chunks = append(chunks, text[start:])
				break
			}
		}
		chunks = append(chunks, text[start:end])

		next := end - overlapBytes
		if next < 0 {
			next = 0
		}
		// Snap a start that lands mid-sequence forward to the next rune
		// boundary. end itself is a boundary, so this never passes it.
		for next < len(text) && !utf8.RuneStart(text[next]) {
			next++
		}
		if next <= start {
			return nil, fmt.Errorf("%w: overlap %d leaves no progress past byte offset %d", ErrInvalidConfig, overlapBytes, start)
		}
		start = next
	}
	return chunks, nil
}
