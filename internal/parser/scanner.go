package parser

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strings"
	"time"
)

// Scanner errors reported at construction. Anything that fails here prevents
// parsing from starting at all; everything later is non-fatal.
var (
	ErrEmptyLog  = errors.New("log file is empty")
	ErrBinaryLog = errors.New("log file is not decodable text")
)

// loggerTimestampRe matches the UnityCrossThreadLogger timestamp prefix,
// e.g. "[UnityCrossThreadLogger]6/19/2025 10:44:45 PM".
var loggerTimestampRe = regexp.MustCompile(`^\[UnityCrossThreadLogger\](\d+/\d+/\d+)\s+(\d+:\d+:\d+\s+[AP]M)`)

// sniffMarkers are product markers looked for in the first 4KB. Their
// absence is advisory only: the file is parsed anyway.
var sniffMarkers = []string{"Unity", "MTGA", "Wizards"}

const sniffSize = 4096

// Scanner streams classified events out of a Player.log file. The file
// interleaves free text with embedded JSON objects, some spanning multiple
// lines with no continuation marker; the scanner runs a two-state machine
// (scanning / accumulating) to recover them.
type Scanner struct {
	path string
	file *os.File
	r    *bufio.Scanner

	line          int
	accumulating  bool
	buffer        []string
	lastTimestamp time.Time
}

// NewScanner opens and validates the log file. The file must exist, be
// non-empty, and look like text; a missing product marker in the first 4KB
// only logs a warning.
func NewScanner(path string) (*Scanner, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}
	if info.Size() == 0 {
		file.Close()
		return nil, fmt.Errorf("%w: %s", ErrEmptyLog, path)
	}

	header := make([]byte, sniffSize)
	n, err := file.Read(header)
	if err != nil && err != io.EOF {
		file.Close()
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	header = header[:n]
	if bytes.IndexByte(header, 0) >= 0 {
		file.Close()
		return nil, fmt.Errorf("%w: %s", ErrBinaryLog, path)
	}

	found := false
	for _, marker := range sniffMarkers {
		if bytes.Contains(header, []byte(marker)) {
			found = true
			break
		}
	}
	if !found {
		log.Printf("[Scanner] Warning: %s may not be a valid MTGA log", path)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to rewind log file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	// Some GRE payloads are very large single lines.
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	return &Scanner{path: path, file: file, r: scanner}, nil
}

// Next returns the next classified event, or io.EOF when the log is
// exhausted. Lines that yield no recognizable event are consumed silently.
func (s *Scanner) Next() (*RawEvent, error) {
	for s.r.Scan() {
		s.line++
		line := s.r.Text()
		stripped := strings.TrimSpace(line)

		// Logger timestamp lines update the sticky fallback regardless of
		// scanner state.
		if m := loggerTimestampRe.FindStringSubmatch(line); m != nil {
			if ts, err := time.Parse("1/2/2006 3:04:05 PM", m[1]+" "+m[2]); err == nil {
				s.lastTimestamp = ts.UTC()
			}
		}

		if s.accumulating {
			s.buffer = append(s.buffer, stripped)
			full := strings.Join(s.buffer, "\n")
			if !isValidJSON(full) {
				continue // not complete yet
			}
			s.accumulating = false
			s.buffer = nil
			if ev := classify([]byte(full), s.line, s.lastTimestamp); ev != nil {
				return ev, nil
			}
			continue
		}

		// JSON starting on this line: try a direct parse, fall back to
		// multi-line accumulation.
		if strings.HasPrefix(stripped, "{") {
			if isValidJSON(stripped) {
				if ev := classify([]byte(stripped), s.line, s.lastTimestamp); ev != nil {
					return ev, nil
				}
				continue
			}
			s.accumulating = true
			s.buffer = []string{stripped}
			continue
		}

		// Prefixed log line with a trailing {...} payload.
		if candidate, ok := extractTrailingJSON(stripped); ok {
			if isValidJSON(candidate) {
				if ev := classify([]byte(candidate), s.line, s.lastTimestamp); ev != nil {
					return ev, nil
				}
			}
		}
	}

	if err := s.r.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	return nil, io.EOF
}

// LastTimestamp returns the sticky logger timestamp at the current scan
// position. Zero when no timestamp line has been seen.
func (s *Scanner) LastTimestamp() time.Time {
	return s.lastTimestamp
}

// Close releases the underlying file.
func (s *Scanner) Close() error {
	return s.file.Close()
}

// extractTrailingJSON pulls a {...} substring off the end of a prefixed log
// line. The candidate runs from the first "{" to the final "}".
func extractTrailingJSON(line string) (string, bool) {
	if !strings.HasSuffix(line, "}") {
		return "", false
	}
	start := strings.Index(line, "{")
	if start < 0 {
		return "", false
	}
	return line[start:], true
}

func isValidJSON(s string) bool {
	return json.Valid([]byte(s))
}
