package capture

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"
)

// maxRecordSize bounds a single JSON line; payload hex doubles the frame size
const maxRecordSize = 1 << 20

// ReadFile loads every record from a capture file
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Read(f)
}

// Read decodes JSON Lines records from r. Blank lines are skipped; a line
// that does not parse fails the read with its line number.
func Read(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)

	var records []Record
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return records, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("failed to read capture: %w", err)
	}
	return records, nil
}

// FrameCount is the number of frames of one type in one direction
type FrameCount struct {
	Direction string
	FrameType string
	Frames    int
	Bytes     int
}

// Summary describes a capture
type Summary struct {
	Records int
	First   time.Time
	Last    time.Time
	Remotes []string
	Counts  []FrameCount // Sorted by direction, then frame type
}

// Duration returns the time between the first and last record
func (s Summary) Duration() time.Duration {
	return s.Last.Sub(s.First)
}

// Summarize tallies records by direction and frame type
func Summarize(records []Record) Summary {
	s := Summary{Records: len(records)}

	type key struct{ direction, frameType string }
	counts := make(map[key]*FrameCount)
	remotes := make(map[string]bool)

	for _, rec := range records {
		if s.First.IsZero() || rec.Timestamp.Before(s.First) {
			s.First = rec.Timestamp
		}
		if rec.Timestamp.After(s.Last) {
			s.Last = rec.Timestamp
		}
		if rec.RemoteAddr != "" && !remotes[rec.RemoteAddr] {
			remotes[rec.RemoteAddr] = true
			s.Remotes = append(s.Remotes, rec.RemoteAddr)
		}

		k := key{rec.Direction, rec.FrameType}
		c, ok := counts[k]
		if !ok {
			c = &FrameCount{Direction: rec.Direction, FrameType: rec.FrameType}
			counts[k] = c
		}
		c.Frames++
		c.Bytes += rec.PayloadLen
	}

	for _, c := range counts {
		s.Counts = append(s.Counts, *c)
	}
	sort.Slice(s.Counts, func(i, j int) bool {
		if s.Counts[i].Direction != s.Counts[j].Direction {
			return s.Counts[i].Direction < s.Counts[j].Direction
		}
		return s.Counts[i].FrameType < s.Counts[j].FrameType
	})
	sort.Strings(s.Remotes)

	return s
}
