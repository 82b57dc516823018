// Package stats implements the event journal (spec.md §4.4): an
// append-only, versioned, JSON-line log of quality signals.
package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bivory/grove/internal/core"
)

// SchemaVersion is the current journal record schema version (the `v`
// field on every line).
const SchemaVersion = 1

// EventTag is the closed set of journal event tags (spec.md §6).
type EventTag string

const (
	TagSurfaced   EventTag = "surfaced"
	TagReferenced EventTag = "referenced"
	TagDismissed  EventTag = "dismissed"
	TagCorrected  EventTag = "corrected"
	TagReflection EventTag = "reflection"
	TagSkip       EventTag = "skip"
	TagArchived   EventTag = "archived"
	TagRestored   EventTag = "restored"
	TagRejected   EventTag = "rejected"
)

// Payload is implemented by each of the nine journal event bodies; Tag
// names the discriminator written to the `event` field on the wire.
type Payload interface {
	Tag() EventTag
}

type Surfaced struct {
	LearningID string                 `json:"learning_id"`
	SessionID  string                 `json:"session_id"`
	Category   *core.LearningCategory `json:"category,omitempty"`
}

func (Surfaced) Tag() EventTag { return TagSurfaced }

type Referenced struct {
	LearningID string  `json:"learning_id"`
	SessionID  string  `json:"session_id"`
	TicketID   *string `json:"ticket_id,omitempty"`
}

func (Referenced) Tag() EventTag { return TagReferenced }

type Dismissed struct {
	LearningID string `json:"learning_id"`
	SessionID  string `json:"session_id"`
}

func (Dismissed) Tag() EventTag { return TagDismissed }

type Corrected struct {
	LearningID    string  `json:"learning_id"`
	SessionID     string  `json:"session_id"`
	SupersededBy  *string `json:"superseded_by,omitempty"`
}

func (Corrected) Tag() EventTag { return TagCorrected }

type Reflection struct {
	SessionID  string                  `json:"session_id"`
	Candidates uint32                  `json:"candidates"`
	Accepted   uint32                  `json:"accepted"`
	Categories []core.LearningCategory `json:"categories,omitempty"`
	TicketID   *string                 `json:"ticket_id,omitempty"`
	Backend    string                  `json:"backend"`
}

func (Reflection) Tag() EventTag { return TagReflection }

type Skip struct {
	SessionID    string          `json:"session_id"`
	Reason       string          `json:"reason"`
	Decider      core.SkipDecider `json:"decider"`
	LinesChanged uint32          `json:"lines_changed"`
	TicketID     *string         `json:"ticket_id,omitempty"`
	ContextFiles []string        `json:"context_files"`
}

func (Skip) Tag() EventTag { return TagSkip }

type Archived struct {
	LearningID string `json:"learning_id"`
	Reason     string `json:"reason"`
}

func (Archived) Tag() EventTag { return TagArchived }

type Restored struct {
	LearningID string `json:"learning_id"`
}

func (Restored) Tag() EventTag { return TagRestored }

type Rejected struct {
	SessionID string   `json:"session_id"`
	Summary   string   `json:"summary"`
	Tags      []string `json:"tags"`
	Reason    string   `json:"reason"`
	Stage     string   `json:"stage"`
}

func (Rejected) Tag() EventTag { return TagRejected }

// StatsEvent is one journal line: schema version, timestamp, and a tagged
// payload. Its JSON shape flattens the payload's fields alongside v/ts/event
// rather than nesting them, matching spec.md §3's "Journal event" layout.
type StatsEvent struct {
	V     int
	TS    time.Time
	Event Payload
}

// NewStatsEvent wraps payload with the current schema version and
// timestamp.
func NewStatsEvent(payload Payload) StatsEvent {
	return StatsEvent{V: SchemaVersion, TS: time.Now().UTC(), Event: payload}
}

func (e StatsEvent) MarshalJSON() ([]byte, error) {
	payloadBytes, err := json.Marshal(e.Event)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payloadBytes, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}

	vBytes, _ := json.Marshal(e.V)
	tsBytes, _ := json.Marshal(e.TS)
	tagBytes, _ := json.Marshal(e.Event.Tag())
	fields["v"] = vBytes
	fields["ts"] = tsBytes
	fields["event"] = tagBytes

	return json.Marshal(fields)
}

func (e *StatsEvent) UnmarshalJSON(data []byte) error {
	var envelope struct {
		V     int       `json:"v"`
		TS    time.Time `json:"ts"`
		Event EventTag  `json:"event"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	e.V = envelope.V
	e.TS = envelope.TS

	var payload Payload
	switch envelope.Event {
	case TagSurfaced:
		var p Surfaced
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		payload = p
	case TagReferenced:
		var p Referenced
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		payload = p
	case TagDismissed:
		var p Dismissed
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		payload = p
	case TagCorrected:
		var p Corrected
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		payload = p
	case TagReflection:
		var p Reflection
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		payload = p
	case TagSkip:
		var p Skip
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		payload = p
	case TagArchived:
		var p Archived
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		payload = p
	case TagRestored:
		var p Restored
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		payload = p
	case TagRejected:
		var p Rejected
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		payload = p
	default:
		return fmt.Errorf("unknown stats event tag %q", envelope.Event)
	}
	e.Event = payload
	return nil
}

// Logger appends StatsEvent records to an append-only JSONL file and reads
// them back subject to a hard byte cap.
type Logger struct {
	path string
}

// NewLogger returns a Logger writing to path. The parent directory is
// created lazily on the first Append, not here.
func NewLogger(path string) *Logger {
	return &Logger{path: path}
}

// Path returns the journal file path.
func (l *Logger) Path() string { return l.path }

// Append serializes event to one JSON line and appends it with a single
// write_all-equivalent call under O_APPEND, giving POSIX-atomic line
// interleaving for lines under PIPE_BUF. No file handle is held open
// between calls.
func (l *Logger) Append(event StatsEvent) error {
	if parent := filepath.Dir(l.path); parent != "." {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return core.BackendErr("failed to create directory %s: %v", parent, err)
		}
	}

	line, err := json.Marshal(event)
	if err != nil {
		return core.SerdeErr("failed to serialize stats event: %v", err)
	}
	line = append(line, '\n')

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return core.BackendErr("failed to open stats log %s: %v", l.path, err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return core.BackendErr("failed to write to stats log %s: %v", l.path, err)
	}
	return nil
}

// ReadAll reads the full journal, bounded by core.MaxFileSize, and decodes
// every non-blank line. A parse error is reported with its 1-based line
// number.
func (l *Logger) ReadAll() ([]StatsEvent, error) {
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := core.ReadFileLimited(l.path)
	if err != nil {
		return nil, err
	}

	var events []StatsEvent
	for i, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var e StatsEvent
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return nil, core.SerdeErr("failed to parse stats event on line %d: %v", i+1, err)
		}
		events = append(events, e)
	}
	return events, nil
}

// Count is a cheap non-blank-line count, also subject to the byte cap.
func (l *Logger) Count() (int, error) {
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		return 0, nil
	}
	content, err := core.ReadFileLimited(l.path)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count, nil
}
