package transport

import (
	"context"
	"encoding/json"
	"fmt"
)

// Request is a single CQL-shaped query, always issued at consistency ONE
// per the distilled spec's outbound interface.
type Request struct {
	Statement string
	Args      []string
}

// Row is a decoded result row. Column names are lowercased per CQL
// convention; values are left as strings since row-shaping is explicitly
// out of scope for this core (delegated to a higher-level Request Runner in
// a full driver, here reduced to a minimal JSON envelope sufficient to
// exercise the state machine).
type Row map[string]string

// Rows is an ordered result set.
type Rows []Row

// RequestRunner executes a single Request against an established Connection
// and returns its result set.
type RequestRunner interface {
	Execute(ctx context.Context, conn *Connection, req Request) (Rows, error)
}

// StreamRunner opens one yamux stream per request, writes a JSON-encoded
// envelope, and decodes a JSON-encoded response, mirroring the teacher's
// TunnelClient.OpenChannel request/response shape (open a stream, write a
// header, read a reply) generalized from a fixed ping/pong to an arbitrary
// request/response pair.
type StreamRunner struct{}

type wireRequest struct {
	Statement   string   `json:"statement"`
	Args        []string `json:"args"`
	Consistency string   `json:"consistency"`
}

type wireResponse struct {
	Rows  Rows   `json:"rows"`
	Error string `json:"error,omitempty"`
	Code  int    `json:"code,omitempty"`
}

func (StreamRunner) Execute(ctx context.Context, conn *Connection, req Request) (Rows, error) {
	stream, err := conn.openStream()
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if deadline, ok := ctx.Deadline(); ok {
		stream.SetDeadline(deadline)
	}

	if err := json.NewEncoder(stream).Encode(wireRequest{Statement: req.Statement, Args: req.Args, Consistency: "ONE"}); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	var resp wireResponse
	if err := json.NewDecoder(stream).Decode(&resp); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.Error != "" {
		if resp.Code != 0 {
			return nil, &QueryError{Code: resp.Code, Message: resp.Error}
		}
		return nil, fmt.Errorf("%s", resp.Error)
	}

	return resp.Rows, nil
}
