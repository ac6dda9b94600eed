// Package obsws is a minimal obs-websocket v5 client: just enough to
// enumerate audio capture inputs and manage source filters on them.
package obsws

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
)

// obs-websocket protocol opcodes (the subset this client speaks).
const (
	opHello           = 0
	opIdentify        = 1
	opIdentified      = 2
	opEvent           = 5
	opRequest         = 6
	opRequestResponse = 7
)

const rpcVersion = 1

// codeResourceNotFound is returned when removing a filter that doesn't
// exist; callers treat that as success.
const codeResourceNotFound = 600

// message is the protocol envelope.
type message struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
}

type helloData struct {
	RPCVersion     int `json:"rpcVersion"`
	Authentication *struct {
		Challenge string `json:"challenge"`
		Salt      string `json:"salt"`
	} `json:"authentication"`
}

type requestStatus struct {
	Result  bool   `json:"result"`
	Code    int    `json:"code"`
	Comment string `json:"comment"`
}

type responseData struct {
	RequestID     string          `json:"requestId"`
	RequestStatus requestStatus   `json:"requestStatus"`
	ResponseData  json.RawMessage `json:"responseData"`
}

// Client is a connected, identified obs-websocket session. Requests are
// issued sequentially from the driving goroutine; the client is not safe
// for concurrent calls.
type Client struct {
	conn *websocket.Conn
	seq  atomic.Int64
}

// Dial connects to an obs-websocket endpoint (e.g. ws://127.0.0.1:4455)
// and completes the Hello/Identify handshake. The password may be empty
// when the server has authentication disabled.
func Dial(ctx context.Context, addr, password string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("obsws: dialing %s: %w", addr, err)
	}

	c := &Client{conn: conn}
	if err := c.identify(password); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) identify(password string) error {
	var env message
	if err := c.conn.ReadJSON(&env); err != nil {
		return fmt.Errorf("obsws: reading hello: %w", err)
	}
	if env.Op != opHello {
		return fmt.Errorf("obsws: expected hello, got opcode %d", env.Op)
	}
	var hello helloData
	if err := json.Unmarshal(env.D, &hello); err != nil {
		return fmt.Errorf("obsws: decoding hello: %w", err)
	}

	identify := map[string]any{"rpcVersion": rpcVersion}
	if hello.Authentication != nil {
		if password == "" {
			return fmt.Errorf("obsws: server requires authentication but no password is configured")
		}
		identify["authentication"] = authResponse(password, hello.Authentication.Salt, hello.Authentication.Challenge)
	}

	if err := c.writeOp(opIdentify, identify); err != nil {
		return fmt.Errorf("obsws: sending identify: %w", err)
	}

	if err := c.conn.ReadJSON(&env); err != nil {
		return fmt.Errorf("obsws: reading identified: %w", err)
	}
	if env.Op != opIdentified {
		return fmt.Errorf("obsws: identify rejected (opcode %d); check the websocket password", env.Op)
	}
	return nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) writeOp(op int, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.conn.WriteJSON(message{Op: op, D: raw})
}

// call issues one request and waits for its response, skipping any event
// messages that arrive in between.
func (c *Client) call(ctx context.Context, requestType string, requestData any) (json.RawMessage, *requestStatus, error) {
	requestID := fmt.Sprintf("%s-%d", requestType, c.seq.Inc())

	req := map[string]any{
		"requestType": requestType,
		"requestId":   requestID,
	}
	if requestData != nil {
		req["requestData"] = requestData
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetReadDeadline(deadline)
		_ = c.conn.SetWriteDeadline(deadline)
	}
	if err := c.writeOp(opRequest, req); err != nil {
		return nil, nil, fmt.Errorf("obsws: sending %s: %w", requestType, err)
	}

	for {
		var env message
		if err := c.conn.ReadJSON(&env); err != nil {
			return nil, nil, fmt.Errorf("obsws: awaiting %s response: %w", requestType, err)
		}
		if env.Op != opRequestResponse {
			continue
		}
		var resp responseData
		if err := json.Unmarshal(env.D, &resp); err != nil {
			return nil, nil, fmt.Errorf("obsws: decoding %s response: %w", requestType, err)
		}
		if resp.RequestID != requestID {
			continue
		}
		return resp.ResponseData, &resp.RequestStatus, nil
	}
}

// audioInputKinds are the capture source kinds the wizard offers, per
// platform backend.
var audioInputKinds = []string{
	"input_capture",
	"wasapi_input",
	"coreaudio_input",
	"pulse_input",
	"alsa_input",
}

// AudioInputs returns the names of microphone-style capture inputs.
func (c *Client) AudioInputs(ctx context.Context) ([]string, error) {
	raw, status, err := c.call(ctx, "GetInputList", nil)
	if err != nil {
		return nil, err
	}
	if !status.Result {
		return nil, fmt.Errorf("obsws: GetInputList failed: %s", status.Comment)
	}

	var data struct {
		Inputs []struct {
			InputName string `json:"inputName"`
			InputKind string `json:"inputKind"`
		} `json:"inputs"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("obsws: decoding input list: %w", err)
	}

	var names []string
	for _, input := range data.Inputs {
		for _, kind := range audioInputKinds {
			if strings.Contains(input.InputKind, kind) {
				names = append(names, input.InputName)
				break
			}
		}
	}
	return names, nil
}

// RemoveFilter deletes a named filter from an input. A filter that does
// not exist is not an error.
func (c *Client) RemoveFilter(ctx context.Context, input, name string) error {
	_, status, err := c.call(ctx, "RemoveSourceFilter", map[string]any{
		"sourceName": input,
		"filterName": name,
	})
	if err != nil {
		return err
	}
	if !status.Result && status.Code != codeResourceNotFound {
		return fmt.Errorf("obsws: RemoveSourceFilter %q: %s", name, status.Comment)
	}
	return nil
}

// CreateFilter adds a filter of the given kind to an input.
func (c *Client) CreateFilter(ctx context.Context, input, name, kind string, settings map[string]any) error {
	_, status, err := c.call(ctx, "CreateSourceFilter", map[string]any{
		"sourceName":     input,
		"filterName":     name,
		"filterKind":     kind,
		"filterSettings": settings,
	})
	if err != nil {
		return err
	}
	if !status.Result {
		return fmt.Errorf("obsws: CreateSourceFilter %q (%s): %s", name, kind, status.Comment)
	}
	return nil
}
