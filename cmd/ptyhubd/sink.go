package main

import (
	"log/slog"

	"github.com/johan--/parallel-code/internal/ptysession"
)

// loggingSink stands in for the in-process desktop owner sink (spec §4.2)
// when ptyhubd runs standalone: exit and notification frames are logged
// instead of delivered to a window. Output frames, which every flush also
// sends here, are dropped — subscribers receive their own copy.
type loggingSink struct {
	logger *slog.Logger
}

func newLoggingSink(logger *slog.Logger) *loggingSink {
	return &loggingSink{logger: logger}
}

func (s *loggingSink) Send(agentID string, frame any) {
	switch f := frame.(type) {
	case ptysession.ExitFrame:
		s.logger.Info("agent exited", "agentId", agentID, "exitCode", f.ExitCode, "signal", f.Signal)
	case ptysession.NotifyFrame:
		s.logger.Info("agent notification", "agentId", agentID, "kind", f.Kind, "title", f.Title, "body", f.Body, "message", f.Message)
	}
}
