package logging

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Entry is one parsed line of the JSON log.
type Entry struct {
	Time               time.Time      `json:"time"`
	Level              string         `json:"level"`
	Message            string         `json:"msg"`
	RequestID          string         `json:"request_id,omitempty"`
	ConversationSlugID string         `json:"conversation_slug_id,omitempty"`
	Attrs              map[string]any `json:"attrs,omitempty"`
}

// Filter selects entries. Zero fields match everything; set fields are ANDed.
type Filter struct {
	// Level is the minimum level (DEBUG < INFO < WARN < ERROR).
	Level string
	Since time.Time
	Until time.Time
	// RequestID matches the request_id attribute exactly.
	RequestID string
	// Conversation matches the conversation_slug_id attribute exactly.
	Conversation string
	// Contains matches a substring of the message.
	Contains string
}

var levelOrder = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// Match reports whether e passes every criterion of f.
func (f Filter) Match(e Entry) bool {
	if f.Level != "" {
		floor, ok := levelOrder[strings.ToUpper(f.Level)]
		got, known := levelOrder[e.Level]
		if ok && known && got < floor {
			return false
		}
	}
	if !f.Since.IsZero() && e.Time.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Time.After(f.Until) {
		return false
	}
	if f.RequestID != "" && e.RequestID != f.RequestID {
		return false
	}
	if f.Conversation != "" && e.ConversationSlugID != f.Conversation {
		return false
	}
	if f.Contains != "" && !strings.Contains(e.Message, f.Contains) {
		return false
	}
	return true
}

// Apply returns the entries that match f, in their original order.
func (f Filter) Apply(entries []Entry) []Entry {
	if f == (Filter{}) {
		return entries
	}
	var out []Entry
	for _, e := range entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// ReadEntries parses the log file in dir together with its rotated backups
// and returns the entries sorted by time. Lines that are not JSON are skipped.
func ReadEntries(dir string) ([]Entry, error) {
	active := filepath.Join(dir, LogFileName)
	if _, err := os.Stat(active); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no log file in %s: %w", dir, err)
		}
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	backups, err := filepath.Glob(active + ".*")
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, path := range append(backups, active) {
		got, err := readFile(path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, got...)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Time.Before(entries[j].Time)
	})
	return entries, nil
}

func readFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
		}
		defer zr.Close()
		r = zr
	}
	return ParseEntries(r)
}

// ParseEntries reads JSON log lines from r.
func ParseEntries(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	// Solve logs carry vote counts and group sizes; allow long lines.
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		e, err := parseEntry(line)
		if err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading log: %w", err)
	}
	return entries, nil
}

func parseEntry(line string) (Entry, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{}, fmt.Errorf("invalid JSON: %w", err)
	}

	var e Entry
	if s, ok := raw["time"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			e.Time = t
		}
	}
	e.Level, _ = raw["level"].(string)
	e.Message, _ = raw["msg"].(string)
	e.RequestID, _ = raw["request_id"].(string)
	e.ConversationSlugID, _ = raw["conversation_slug_id"].(string)

	for _, k := range []string{"time", "level", "msg", "request_id", "conversation_slug_id"} {
		delete(raw, k)
	}
	if len(raw) > 0 {
		e.Attrs = raw
	}
	return e, nil
}

// Export formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// WriteEntries writes entries to w as text, json or csv.
func WriteEntries(w io.Writer, entries []Entry, format string) error {
	switch strings.ToLower(format) {
	case FormatText, "":
		return writeText(w, entries)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if entries == nil {
			entries = []Entry{}
		}
		return enc.Encode(entries)
	case FormatCSV:
		return writeCSV(w, entries)
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json, csv)", format)
	}
}

// FormatEntry renders e as one line: [time] LEVEL msg (request=..) {attrs}.
func FormatEntry(e Entry) string {
	parts := []string{
		fmt.Sprintf("[%s]", e.Time.Format("2006-01-02 15:04:05.000")),
		fmt.Sprintf("%-5s", e.Level),
		e.Message,
	}

	var ctx []string
	if e.RequestID != "" {
		ctx = append(ctx, "request="+e.RequestID)
	}
	if e.ConversationSlugID != "" {
		ctx = append(ctx, "conversation="+e.ConversationSlugID)
	}
	if len(ctx) > 0 {
		parts = append(parts, "("+strings.Join(ctx, ", ")+")")
	}
	if len(e.Attrs) > 0 {
		attrs, _ := json.Marshal(e.Attrs)
		parts = append(parts, string(attrs))
	}
	return strings.Join(parts, " ")
}

func writeText(w io.Writer, entries []Entry) error {
	for _, e := range entries {
		if _, err := fmt.Fprintln(w, FormatEntry(e)); err != nil {
			return fmt.Errorf("failed to write entry: %w", err)
		}
	}
	return nil
}

func writeCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "level", "msg", "request_id", "conversation_slug_id", "attrs"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, e := range entries {
		attrs := ""
		if len(e.Attrs) > 0 {
			if b, err := json.Marshal(e.Attrs); err == nil {
				attrs = string(b)
			}
		}
		record := []string{
			e.Time.Format(time.RFC3339Nano),
			e.Level,
			e.Message,
			e.RequestID,
			e.ConversationSlugID,
			attrs,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
