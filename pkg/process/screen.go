package process

import "bytes"

// Common ANSI escape sequences for screen clearing
var screenClearSequences = [][]byte{
	[]byte("\033[2J"), // Clear entire screen
	[]byte("\033[3J"), // Clear entire screen and scrollback
	[]byte("\033[H"),  // Move cursor to home position (often follows clear)
	[]byte("\033[0J"), // Clear from cursor to end of screen
	[]byte("\033[1J"), // Clear from cursor to beginning of screen
	[]byte("\033c"),   // Reset terminal
}

// maxSequenceTail is how much of a chunk is kept to catch a sequence split
// across reads.
const maxSequenceTail = 8

// screenDetector finds screen clears in a stream of output chunks.
type screenDetector struct {
	buffer []byte
}

func newScreenDetector() *screenDetector {
	return &screenDetector{buffer: make([]byte, 0, 256)}
}

// Detect reports whether data, joined to the tail of earlier chunks,
// contains a screen clear. A clear is reported once.
func (s *screenDetector) Detect(data []byte) bool {
	s.buffer = append(s.buffer, data...)

	for _, seq := range screenClearSequences {
		if bytes.Contains(s.buffer, seq) {
			s.buffer = s.buffer[:0]
			return true
		}
	}

	if len(s.buffer) > maxSequenceTail {
		s.buffer = append(s.buffer[:0], s.buffer[len(s.buffer)-maxSequenceTail:]...)
	}
	return false
}
