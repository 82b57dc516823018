// Package events implements the optional event sidecar (spec.md's C13): a
// best-effort, fire-and-forget mirror of trace and journal events onto NATS
// subjects, purely for external observability. Nothing in Grove's gate,
// storage, or journal logic depends on a publish ever succeeding — every
// call site swallows the error, the same fail-open posture as a storage
// write in the hook dispatcher.
//
// Grounded on the teacher's internal/events/events.go: topic constants plus
// a small set of typed payloads behind one Publisher interface.
package events

import (
	"context"

	"github.com/bivory/grove/internal/core"
	"github.com/bivory/grove/internal/stats"
)

const (
	topicSessionTracePrefix = "grove.session."
	topicSessionTraceSuffix = ".trace"

	// TopicJournal is the subject every journal StatsEvent is mirrored to.
	TopicJournal = "grove.journal"
)

// TopicSessionTrace returns the per-session trace subject for sessionID, so
// an operator can `nats sub grove.session.<id>.trace` to watch one
// session's gate transitions live.
func TopicSessionTrace(sessionID string) string {
	return topicSessionTracePrefix + sessionID + topicSessionTraceSuffix
}

// TraceMessage is published once per trace append.
type TraceMessage struct {
	SessionID string          `json:"session_id"`
	Event     core.TraceEvent `json:"event"`
}

// JournalMessage is published once per journal append.
type JournalMessage struct {
	Event stats.StatsEvent `json:"event"`
}

// Publisher is the interface the hook dispatcher publishes through.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
