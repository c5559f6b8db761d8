// Package protocol implements the JSON wire codec between browser clients
// and the session pool.
//
// The codec is pure: parsing and serializing do no I/O and never block.
// Invalid client frames are silently discarded — ParseClientFrame returns a
// nil frame rather than an error, matching the server's "drop, don't
// surface" policy for malformed protocol messages.
package protocol

import (
	"bytes"
	"encoding/json"
)

const (
	maxAgentIDBytes = 100
	maxInputBytes   = 4096
	minDim          = 1
	maxDim          = 500
)

// ClientFrameType enumerates the frame types a browser client may send.
type ClientFrameType string

const (
	ClientInput       ClientFrameType = "input"
	ClientResize      ClientFrameType = "resize"
	ClientKill        ClientFrameType = "kill"
	ClientSubscribe   ClientFrameType = "subscribe"
	ClientUnsubscribe ClientFrameType = "unsubscribe"
)

// ClientFrame is the parsed, validated form of any client-to-server message.
type ClientFrame struct {
	Type    ClientFrameType
	AgentID string
	Data    string // input only
	Cols    int    // resize only
	Rows    int    // resize only
}

// wireClientFrame mirrors the raw JSON shape before validation. Cols/Rows
// are kept as raw JSON so that both their type (a number, not a quoted
// string) and their integer-ness can be checked explicitly.
type wireClientFrame struct {
	Type    string          `json:"type"`
	AgentID *string         `json:"agentId"`
	Data    *string         `json:"data"`
	Cols    json.RawMessage `json:"cols"`
	Rows    json.RawMessage `json:"rows"`
}

// ParseClientFrame parses and validates a client-to-server message.
// Any failure of type, presence, bound, or integer-ness checks yields a nil
// frame rather than an error.
func ParseClientFrame(raw []byte) *ClientFrame {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var w wireClientFrame
	if err := dec.Decode(&w); err != nil {
		return nil
	}

	if w.AgentID == nil {
		return nil
	}
	agentID := *w.AgentID
	if len(agentID) == 0 || len(agentID) > maxAgentIDBytes {
		return nil
	}

	switch ClientFrameType(w.Type) {
	case ClientInput:
		if w.Data == nil || len(*w.Data) > maxInputBytes {
			return nil
		}
		return &ClientFrame{Type: ClientInput, AgentID: agentID, Data: *w.Data}

	case ClientResize:
		cols, ok := parseBoundedInt(w.Cols, minDim, maxDim)
		if !ok {
			return nil
		}
		rows, ok := parseBoundedInt(w.Rows, minDim, maxDim)
		if !ok {
			return nil
		}
		return &ClientFrame{Type: ClientResize, AgentID: agentID, Cols: cols, Rows: rows}

	case ClientKill:
		return &ClientFrame{Type: ClientKill, AgentID: agentID}

	case ClientSubscribe:
		return &ClientFrame{Type: ClientSubscribe, AgentID: agentID}

	case ClientUnsubscribe:
		return &ClientFrame{Type: ClientUnsubscribe, AgentID: agentID}

	default:
		return nil
	}
}

func parseBoundedInt(raw json.RawMessage, min, max int) (int, bool) {
	if len(raw) == 0 || raw[0] == '"' {
		return 0, false
	}
	i64, err := json.Number(raw).Int64()
	if err != nil {
		return 0, false
	}
	v := int(i64)
	if v < min || v > max {
		return 0, false
	}
	return v, true
}
