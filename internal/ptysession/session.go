package ptysession

import (
	"encoding/base64"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"

	"github.com/johan--/parallel-code/internal/notification"
	"github.com/johan--/parallel-code/internal/ringbuffer"
)

const scrollbackCapacity = 64 * 1024

// Session is the runtime record for one agent: its child process, output
// pipeline, scrollback, and subscriber set.
type Session struct {
	agentID string
	taskID  string

	cmd     *exec.Cmd
	ptyFile *os.File
	logger  *slog.Logger
	sink    DesktopSink
	onExit  func(agentID string, exitCode int, signal *string)

	sessionMu       sync.Mutex
	subscribers     map[uint64]SubscriberFunc
	nextSubID       uint64
	cols, rows      int
	scrollback      *ringbuffer.Buffer
	promptThreshold int

	// Immutable after spawnSession returns; read without a lock.
	batchMaxBytes int
	batchInterval time.Duration
	tailCapBytes  int
	maxLines      int

	// Owned exclusively by run(); never touched from another goroutine.
	tail  []byte
	batch []byte

	rawCh  chan []byte
	exitCh chan error
	doneCh chan struct{}
}

type spawnResult struct {
	session *Session
	err     error
}

// spawnSession starts the child process and its worker goroutines.
func spawnSession(cfg SpawnConfig, sink DesktopSink, logger *slog.Logger, onExit func(agentID string, exitCode int, signal *string), tuning Tuning) spawnResult {
	if err := validateCommand(cfg.Command, cfg.Args); err != nil {
		return spawnResult{err: err}
	}

	command := resolveCommand(cfg.Command)
	cwd := resolveCwd(cfg.Cwd)
	env := buildEnv(cfg.Env)

	cols, rows := cfg.Cols, cfg.Rows
	if cols <= 0 {
		cols = 80
	}
	if rows <= 0 {
		rows = 24
	}

	cmd := exec.Command(command, cfg.Args...)
	cmd.Dir = cwd
	cmd.Env = env

	ptyFile, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		return spawnResult{err: err}
	}

	if sink == nil {
		sink = noopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if tuning.BatchMaxBytes <= 0 {
		tuning.BatchMaxBytes = BatchMaxBytes
	}
	if tuning.BatchIntervalMS <= 0 {
		tuning.BatchIntervalMS = BatchInterval
	}
	if tuning.TailCapBytes <= 0 {
		tuning.TailCapBytes = TailCapBytes
	}
	if tuning.MaxLines <= 0 {
		tuning.MaxLines = MaxExitLines
	}

	s := &Session{
		agentID:         cfg.AgentID,
		taskID:          cfg.TaskID,
		cmd:             cmd,
		ptyFile:         ptyFile,
		logger:          logger,
		sink:            sink,
		onExit:          onExit,
		subscribers:     make(map[uint64]SubscriberFunc),
		cols:            cols,
		rows:            rows,
		scrollback:      ringbuffer.New(scrollbackCapacity),
		promptThreshold: defaultPromptBytes,
		batchMaxBytes:   tuning.BatchMaxBytes,
		batchInterval:   time.Duration(tuning.BatchIntervalMS) * time.Millisecond,
		tailCapBytes:    tuning.TailCapBytes,
		maxLines:        tuning.MaxLines,
		rawCh:           make(chan []byte, 16),
		exitCh:          make(chan error, 1),
		doneCh:          make(chan struct{}),
	}

	go s.readLoop()
	go func() {
		s.exitCh <- s.cmd.Wait()
	}()
	go s.run()

	return spawnResult{session: s}
}

// readLoop reads raw bytes off the pty and forwards them to run(). It is
// the only goroutine that calls Read on the pty file.
func (s *Session) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := s.ptyFile.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.rawCh <- chunk
		}
		if err != nil {
			close(s.rawCh)
			return
		}
	}
}

// run is the session's single worker: it owns the batch buffer, tail
// buffer, and flush timer exclusively; it writes to scrollback (and reads
// promptThreshold) through sessionMu like every other goroutine.
func (s *Session) run() {
	defer close(s.doneCh)

	var timer *time.Timer
	var timerC <-chan time.Time

	cancelTimer := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case chunk, ok := <-s.rawCh:
			if !ok {
				cancelTimer()
				s.finalize()
				return
			}

			s.tail = append(s.tail, chunk...)
			if len(s.tail) > s.tailCapBytes {
				s.tail = s.tail[len(s.tail)-s.tailCapBytes:]
			}
			s.batch = append(s.batch, chunk...)

			s.sessionMu.Lock()
			threshold := s.promptThreshold
			s.sessionMu.Unlock()

			switch {
			case len(s.batch) >= s.batchMaxBytes:
				cancelTimer()
				s.flush()
			case len(chunk) < threshold:
				cancelTimer()
				s.flush()
			default:
				if timer == nil {
					timer = time.NewTimer(s.batchInterval)
					timerC = timer.C
				}
			}

		case <-timerC:
			timer = nil
			timerC = nil
			s.flush()
		}
	}
}

// flush takes and clears the pending batch, then delivers it to the
// desktop sink, the scrollback, and every subscriber, in that order.
func (s *Session) flush() {
	if len(s.batch) == 0 {
		return
	}

	data := s.batch
	s.batch = nil

	b64 := base64.StdEncoding.EncodeToString(data)
	s.sink.Send(s.agentID, OutputFrame{Data: b64})

	s.sessionMu.Lock()
	s.scrollback.Write(data)
	s.sessionMu.Unlock()

	for _, n := range notification.Detect(data) {
		s.sink.Send(s.agentID, NotifyFrame{
			Kind:    string(n.Type),
			Title:   n.Title,
			Body:    n.Body,
			Message: n.Message,
		})
	}

	s.sessionMu.Lock()
	subs := make([]SubscriberFunc, 0, len(s.subscribers))
	for _, cb := range s.subscribers {
		subs = append(subs, cb)
	}
	s.sessionMu.Unlock()

	for _, cb := range subs {
		cb(b64)
	}
}

// finalize runs once, after the pty read loop observes EOF: a final flush,
// the exit report, and the exit lifecycle event.
func (s *Session) finalize() {
	s.flush()

	waitErr := <-s.exitCh
	exitCode, signal := exitStatus(s.cmd, waitErr)

	lines := tailLines(s.tail, s.maxLines)
	s.sink.Send(s.agentID, ExitFrame{ExitCode: exitCode, Signal: signal, LastOutput: lines})

	if s.onExit != nil {
		s.onExit(s.agentID, exitCode, signal)
	}
}

// tailLines decodes data as UTF-8, splits on newline, strips trailing \r,
// drops empty lines, and keeps at most maxLines.
func tailLines(data []byte, maxLines int) []string {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	raw := strings.Split(text, "\n")

	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}

	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return lines
}

// Subscribe registers cb for every future flush and returns a handle used
// to remove it again. Every call adds a new subscriber; idempotence is the
// server's job (each web client tracks whether it already holds a handle
// for this agent).
func (s *Session) Subscribe(cb SubscriberFunc) uint64 {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subscribers[id] = cb
	return id
}

// Unsubscribe removes a subscriber by handle. Silent if absent.
func (s *Session) Unsubscribe(handle uint64) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	delete(s.subscribers, handle)
}

// Write sends bytes to the child's stdin.
func (s *Session) Write(data []byte) error {
	_, err := s.ptyFile.Write(data)
	return err
}

// Resize updates the pty window size.
func (s *Session) Resize(cols, rows int) error {
	s.sessionMu.Lock()
	s.cols, s.rows = cols, rows
	s.sessionMu.Unlock()
	return pty.Setsize(s.ptyFile, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

// Cols returns the session's current terminal dimensions.
func (s *Session) Cols() (cols, rows int) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	return s.cols, s.rows
}

// Kill clears subscribers (so the final exit flush notifies no one) and
// sends the child a termination signal. Final cleanup happens in finalize
// once the child actually exits.
func (s *Session) Kill() {
	s.sessionMu.Lock()
	s.subscribers = make(map[uint64]SubscriberFunc)
	s.sessionMu.Unlock()

	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
}

// Scrollback returns the base64 snapshot of stored output.
func (s *Session) Scrollback() string {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	return s.scrollback.Base64()
}

// SetPromptThreshold overrides the interactive-prompt flush heuristic
// (default 1 KiB), primarily so tests can make flush timing deterministic.
func (s *Session) SetPromptThreshold(n int) {
	s.sessionMu.Lock()
	s.promptThreshold = n
	s.sessionMu.Unlock()
}

// TaskID returns the agent's owning task id.
func (s *Session) TaskID() string { return s.taskID }

// AgentID returns the agent's id.
func (s *Session) AgentID() string { return s.agentID }
