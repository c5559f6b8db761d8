// Package ptysession implements the PTY session pool: spawning child
// processes on pseudo-terminals, batching their output, keeping a bounded
// scrollback, fanning out to subscribers, and emitting lifecycle events.
//
// A Session owns exactly one child process. Its batch buffer and tail
// buffer are mutated by exactly one goroutine — the session's worker
// loop — so they need no lock. The scrollback ring buffer, the subscriber
// set, the cached cols/rows, and the prompt-flush threshold are all
// touched from multiple goroutines (subscribing web clients, resize
// requests, scrollback snapshot reads) and are guarded by a dedicated
// mutex, matching the lock-ordering rules in the concurrency model: the
// pool's map lock is never held while a session lock is held, and vice
// versa.
package ptysession

import (
	"errors"
)

// Error kinds surfaced to callers (spec §7 taxonomy).
var (
	// ErrInvalidCommand is returned by Spawn when the command or an
	// argument contains a disallowed shell metacharacter.
	ErrInvalidCommand = errors.New("ptysession: invalid command")

	// ErrAgentNotFound is returned by pool operations addressing an
	// agent id that is not currently live.
	ErrAgentNotFound = errors.New("ptysession: agent not found")
)

// Output pipeline tuning defaults (spec §4.2).
const (
	BatchMaxBytes      = 64 * 1024
	BatchInterval      = 8 // milliseconds
	TailCapBytes       = 8 * 1024
	MaxExitLines       = 50
	defaultPromptBytes = 1024
)

// Tuning holds the output-pipeline knobs a pool applies to every session it
// spawns. Overridable via internal/config (PTYHUB_BATCH_MAX_BYTES,
// PTYHUB_BATCH_INTERVAL_MS, PTYHUB_TAIL_CAP_BYTES, PTYHUB_MAX_LINES).
type Tuning struct {
	BatchMaxBytes   int
	BatchIntervalMS int
	TailCapBytes    int
	MaxLines        int
}

// DefaultTuning returns the spec §4.2 defaults.
func DefaultTuning() Tuning {
	return Tuning{
		BatchMaxBytes:   BatchMaxBytes,
		BatchIntervalMS: BatchInterval,
		TailCapBytes:    TailCapBytes,
		MaxLines:        MaxExitLines,
	}
}

// SubscriberFunc receives a base64-encoded output chunk. It must return
// quickly — it is invoked synchronously from the session's flush.
type SubscriberFunc func(base64Chunk string)

// OutputFrame is delivered to the desktop sink for every flush.
type OutputFrame struct {
	Data string // base64
}

// ExitFrame is delivered to the desktop sink when a session's child exits.
type ExitFrame struct {
	ExitCode   int
	Signal     *string
	LastOutput []string
}

// NotifyFrame is delivered to the desktop sink when an OSC notification is
// detected in a flushed chunk. It is never forwarded to web subscribers —
// the wire protocol has no frame type for it.
type NotifyFrame struct {
	Kind    string // "osc9" or "osc777"
	Title   string
	Body    string
	Message string
}

// DesktopSink is the always-present, in-process consumer. Sends are
// best-effort and must not block or panic the caller.
type DesktopSink interface {
	Send(agentID string, frame any)
}

// TaskMetadataProvider supplies the external, synchronous lookups the pool
// needs to build the RemoteAgent projection.
type TaskMetadataProvider interface {
	TaskName(taskID string) string
	AgentStatus(agentID string) (status string, exitCode *int, lastLine string)
}

// noopSink discards everything. Used when no sink is supplied.
type noopSink struct{}

func (noopSink) Send(string, any) {}

// nullMetadata is used when no TaskMetadataProvider is supplied; every
// lookup returns zero values.
type nullMetadata struct{}

func (nullMetadata) TaskName(string) string                    { return "" }
func (nullMetadata) AgentStatus(string) (string, *int, string) { return "", nil, "" }
