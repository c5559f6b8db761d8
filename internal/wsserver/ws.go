package wsserver

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/johan--/parallel-code/internal/protocol"
)

// handleWebSocket upgrades the connection and runs its read loop until the
// client disconnects. Auth is already enforced by withMiddleware; this
// handler only enforces the connection cap.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.clientsMu.Lock()
	full := len(s.clients) >= s.maxClients
	s.clientsMu.Unlock()
	if full {
		writeJSONError(w, http.StatusTooManyRequests, "too many connections")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("wsserver: upgrade failed", "err", err)
		return
	}
	conn.SetReadLimit(maxWSPayloadBytes)

	client := newWSClient(uuid.NewString(), conn)
	s.clientsMu.Lock()
	s.clients[client] = struct{}{}
	s.clientsMu.Unlock()

	if err := client.send(protocol.AgentsFrame(s.pool.Projection())); err != nil {
		s.dropClient(client)
		return
	}

	s.clientReadLoop(client)
}

// clientReadLoop blocks reading frames from one client until it
// disconnects, dispatching each to the pool, then unsubscribes and removes
// the client.
func (s *Server) clientReadLoop(client *wsClient) {
	defer s.dropClient(client)

	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		frame := protocol.ParseClientFrame(raw)
		if frame == nil {
			continue
		}
		s.dispatch(client, frame)
	}
}

func (s *Server) dispatch(client *wsClient, frame *protocol.ClientFrame) {
	switch frame.Type {
	case protocol.ClientInput:
		_ = s.pool.Write(frame.AgentID, []byte(frame.Data))

	case protocol.ClientResize:
		_ = s.pool.Resize(frame.AgentID, frame.Cols, frame.Rows)

	case protocol.ClientKill:
		s.pool.Kill(frame.AgentID)

	case protocol.ClientSubscribe:
		s.subscribeClient(client, frame.AgentID)

	case protocol.ClientUnsubscribe:
		s.unsubscribeClient(client, frame.AgentID)
	}
}

func (s *Server) subscribeClient(client *wsClient, agentID string) {
	if client.hasSub(agentID) {
		return
	}

	scrollback, ok := s.pool.Scrollback(agentID)
	if !ok {
		return
	}
	cols, _, _ := s.pool.Cols(agentID)

	var handle uint64
	handle, ok = s.pool.Subscribe(agentID, func(b64 string) {
		if err := client.send(protocol.OutputFrame(agentID, b64)); err != nil {
			client.removeSub(agentID)
			s.pool.Unsubscribe(agentID, handle)
		}
	})
	if !ok {
		return
	}
	client.addSub(agentID, handle)

	_ = client.send(protocol.ScrollbackFrame(agentID, scrollback, cols))
}

func (s *Server) unsubscribeClient(client *wsClient, agentID string) {
	if handle, ok := client.removeSub(agentID); ok {
		s.pool.Unsubscribe(agentID, handle)
	}
}

// dropClient unsubscribes every agent the client held and removes it from
// the registry.
func (s *Server) dropClient(client *wsClient) {
	for agentID, handle := range client.allSubs() {
		s.pool.Unsubscribe(agentID, handle)
	}
	client.close()

	s.clientsMu.Lock()
	delete(s.clients, client)
	s.clientsMu.Unlock()
}
