package ptysession

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/johan--/parallel-code/internal/eventbus"
	"github.com/johan--/parallel-code/internal/protocol"
)

// SpawnConfig describes a requested agent.
type SpawnConfig struct {
	AgentID string
	TaskID  string
	Command string
	Args    []string
	Cwd     string
	Cols    int
	Rows    int
	Env     map[string]string
}

// Pool is the process-wide registry of live sessions, keyed by agent id.
// The pool exclusively owns sessions; it never reaches into a session's
// internal state except through the accessor methods below.
type Pool struct {
	mu       sync.Mutex
	sessions map[string]*Session

	bus    *eventbus.Bus
	sink   DesktopSink
	meta   TaskMetadataProvider
	logger *slog.Logger

	tuneMu sync.Mutex
	tuning Tuning
}

// New creates an empty pool. A nil sink/meta/logger falls back to a no-op
// implementation so the pool is usable without a fully wired server.
func New(bus *eventbus.Bus, sink DesktopSink, meta TaskMetadataProvider, logger *slog.Logger) *Pool {
	if sink == nil {
		sink = noopSink{}
	}
	if meta == nil {
		meta = nullMetadata{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		sessions: make(map[string]*Session),
		bus:      bus,
		sink:     sink,
		meta:     meta,
		logger:   logger,
		tuning:   DefaultTuning(),
	}
}

// SetTuning overrides the output-pipeline knobs applied to every session
// spawned from this point on, per internal/config's batch/tail settings.
// Already-running sessions keep the tuning they were spawned with.
func (p *Pool) SetTuning(t Tuning) {
	p.tuneMu.Lock()
	p.tuning = t
	p.tuneMu.Unlock()
}

// Spawn starts a new agent and inserts it into the pool. If cfg.AgentID is
// empty, a fresh one is generated so callers spawning ad hoc agents don't
// need to mint ids themselves.
func (p *Pool) Spawn(cfg SpawnConfig) (*Session, error) {
	if cfg.AgentID == "" {
		cfg.AgentID = uuid.NewString()
	}

	p.tuneMu.Lock()
	tuning := p.tuning
	p.tuneMu.Unlock()

	result := spawnSession(cfg, p.sink, p.logger, p.handleExit, tuning)
	if result.err != nil {
		return nil, result.err
	}

	p.mu.Lock()
	p.sessions[cfg.AgentID] = result.session
	p.mu.Unlock()

	if p.bus != nil {
		p.bus.Publish(eventbus.Spawn, cfg.AgentID, nil)
		p.bus.Publish(eventbus.ListChanged, cfg.AgentID, nil)
	}

	return result.session, nil
}

// handleExit is invoked by a session's worker once its child has exited.
func (p *Pool) handleExit(agentID string, exitCode int, signal *string) {
	p.mu.Lock()
	delete(p.sessions, agentID)
	p.mu.Unlock()

	if p.bus != nil {
		sig := ""
		if signal != nil {
			sig = *signal
		}
		p.bus.Publish(eventbus.Exit, agentID, &eventbus.ExitPayload{ExitCode: exitCode, Signal: sig})
	}
}

func (p *Pool) get(agentID string) (*Session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[agentID]
	return s, ok
}

// Write sends bytes to the agent's child stdin.
func (p *Pool) Write(agentID string, data []byte) error {
	s, ok := p.get(agentID)
	if !ok {
		return ErrAgentNotFound
	}
	return s.Write(data)
}

// Resize updates the agent's pty window size.
func (p *Pool) Resize(agentID string, cols, rows int) error {
	s, ok := p.get(agentID)
	if !ok {
		return ErrAgentNotFound
	}
	return s.Resize(cols, rows)
}

// Kill terminates the agent's child process. No-op if the agent is unknown.
func (p *Pool) Kill(agentID string) {
	if s, ok := p.get(agentID); ok {
		s.Kill()
	}
}

// KillAll terminates every live agent.
func (p *Pool) KillAll() {
	p.mu.Lock()
	sessions := make([]*Session, 0, len(p.sessions))
	for _, s := range p.sessions {
		sessions = append(sessions, s)
	}
	p.mu.Unlock()

	for _, s := range sessions {
		s.Kill()
	}
}

// Subscribe registers cb on the named agent's session. Returns false if
// the agent no longer exists.
func (p *Pool) Subscribe(agentID string, cb SubscriberFunc) (handle uint64, ok bool) {
	s, exists := p.get(agentID)
	if !exists {
		return 0, false
	}
	return s.Subscribe(cb), true
}

// Unsubscribe removes a subscriber by handle. Silent if the agent or
// handle is absent.
func (p *Pool) Unsubscribe(agentID string, handle uint64) {
	if s, ok := p.get(agentID); ok {
		s.Unsubscribe(handle)
	}
}

// Scrollback returns the base64 snapshot for an agent, or ("", false) if
// the agent is unknown.
func (p *Pool) Scrollback(agentID string) (string, bool) {
	s, ok := p.get(agentID)
	if !ok {
		return "", false
	}
	return s.Scrollback(), true
}

// AgentStatus returns the live status, exit code, and last output line for
// an agent still held by the pool.
func (p *Pool) AgentStatus(agentID string) (status string, exitCode *int, lastLine string, ok bool) {
	if _, exists := p.get(agentID); !exists {
		return "", nil, "", false
	}
	status, exitCode, lastLine = p.meta.AgentStatus(agentID)
	return status, exitCode, lastLine, true
}

// ActiveIDs returns the agent ids currently in the pool, in no particular
// order.
func (p *Pool) ActiveIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.sessions))
	for id := range p.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Meta returns the task id owning an agent.
func (p *Pool) Meta(agentID string) (taskID string, ok bool) {
	s, exists := p.get(agentID)
	if !exists {
		return "", false
	}
	return s.TaskID(), true
}

// Cols returns an agent's current terminal dimensions.
func (p *Pool) Cols(agentID string) (cols, rows int, ok bool) {
	s, exists := p.get(agentID)
	if !exists {
		return 0, 0, false
	}
	cols, rows = s.Cols()
	return cols, rows, true
}

// SetPromptThreshold overrides the interactive-prompt flush heuristic on a
// live session, for deterministic tests.
func (p *Pool) SetPromptThreshold(agentID string, n int) {
	if s, ok := p.get(agentID); ok {
		s.SetPromptThreshold(n)
	}
}

// Projection builds the RemoteAgent list for an "agents" frame: one entry
// per task id, preferring a running agent over an exited one, and the
// last-seen agent when neither or both are running (spec §4.5).
func (p *Pool) Projection() []protocol.RemoteAgent {
	ids := p.ActiveIDs()

	byTask := make(map[string]protocol.RemoteAgent)
	order := make([]string, 0, len(ids))

	for _, agentID := range ids {
		taskID, ok := p.Meta(agentID)
		if !ok {
			continue
		}
		status, exitCode, lastLine := p.meta.AgentStatus(agentID)

		entry := protocol.RemoteAgent{
			AgentID:  agentID,
			TaskID:   taskID,
			TaskName: p.meta.TaskName(taskID),
			Status:   status,
			ExitCode: exitCode,
			LastLine: lastLine,
		}

		existing, seen := byTask[taskID]
		if !seen {
			order = append(order, taskID)
			byTask[taskID] = entry
			continue
		}
		if existing.Status == "running" && entry.Status != "running" {
			continue // running outranks exited
		}
		byTask[taskID] = entry // last-seen wins otherwise
	}

	out := make([]protocol.RemoteAgent, 0, len(order))
	for _, taskID := range order {
		out = append(out, byTask[taskID])
	}
	return out
}
