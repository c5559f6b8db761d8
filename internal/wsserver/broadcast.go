package wsserver

import (
	"time"

	"github.com/johan--/parallel-code/internal/eventbus"
	"github.com/johan--/parallel-code/internal/protocol"
)

// onSpawnOrListChanged rebroadcasts the full "agents" projection to every
// connected client.
func (s *Server) onSpawnOrListChanged(agentID string, _ *eventbus.ExitPayload) {
	s.broadcastAgents()
}

// onExit immediately broadcasts a "status" frame for the exited agent,
// drops any client subscriptions still pointing at it, then rebroadcasts
// the "agents" projection after a short debounce. Each exit schedules its
// own rebroadcast; a burst of exits is not coalesced into one refresh.
func (s *Server) onExit(agentID string, payload *eventbus.ExitPayload) {
	var exitCode *int
	if payload != nil {
		code := payload.ExitCode
		exitCode = &code
	}
	s.broadcastAll(protocol.StatusFrame(agentID, "exited", exitCode))

	for _, client := range s.snapshotClients() {
		if handle, ok := client.removeSub(agentID); ok {
			s.pool.Unsubscribe(agentID, handle)
		}
	}

	time.AfterFunc(exitBroadcastDebounce, s.broadcastAgents)
}

func (s *Server) broadcastAgents() {
	s.broadcastAll(protocol.AgentsFrame(s.pool.Projection()))
}

func (s *Server) broadcastAll(data []byte) {
	for _, client := range s.snapshotClients() {
		_ = client.send(data)
	}
}

func (s *Server) snapshotClients() []*wsClient {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	out := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		out = append(out, c)
	}
	return out
}
