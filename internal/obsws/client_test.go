package obsws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeServer speaks just enough obs-websocket v5 to exercise the client:
// the identify handshake plus a canned handler per request type.
type fakeServer struct {
	password string
	handlers map[string]func(data json.RawMessage) (any, requestStatus)
}

func (s *fakeServer) serve(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		hello := map[string]any{"rpcVersion": rpcVersion}
		const salt, challenge = "testsalt", "testchallenge"
		if s.password != "" {
			hello["authentication"] = map[string]string{
				"challenge": challenge,
				"salt":      salt,
			}
		}
		writeEnvelope(t, conn, opHello, hello)

		var env message
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		if env.Op != opIdentify {
			t.Errorf("expected identify, got opcode %d", env.Op)
			return
		}
		if s.password != "" {
			var identify struct {
				Authentication string `json:"authentication"`
			}
			if err := json.Unmarshal(env.D, &identify); err != nil {
				t.Errorf("decoding identify: %v", err)
				return
			}
			if identify.Authentication != authResponse(s.password, salt, challenge) {
				// A real server closes with 4005 on a bad password; an
				// unexpected opcode is close enough for the client.
				writeEnvelope(t, conn, opHello, hello)
				return
			}
		}
		writeEnvelope(t, conn, opIdentified, map[string]any{"negotiatedRpcVersion": rpcVersion})

		for {
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			if env.Op != opRequest {
				continue
			}
			var req struct {
				RequestType string          `json:"requestType"`
				RequestID   string          `json:"requestId"`
				RequestData json.RawMessage `json:"requestData"`
			}
			if err := json.Unmarshal(env.D, &req); err != nil {
				t.Errorf("decoding request: %v", err)
				return
			}

			// An interleaved event the client must skip over.
			writeEnvelope(t, conn, opEvent, map[string]any{"eventType": "InputVolumeMeters"})

			handler := s.handlers[req.RequestType]
			if handler == nil {
				t.Errorf("no handler for request type %s", req.RequestType)
				return
			}
			data, status := handler(req.RequestData)
			writeEnvelope(t, conn, opRequestResponse, map[string]any{
				"requestId":     req.RequestID,
				"requestStatus": status,
				"responseData":  data,
			})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeEnvelope(t *testing.T, conn *websocket.Conn, op int, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Errorf("marshal: %v", err)
		return
	}
	if err := conn.WriteJSON(message{Op: op, D: raw}); err != nil {
		t.Errorf("write: %v", err)
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialTest(t *testing.T, srv *httptest.Server, password string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, wsURL(srv), password)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func okStatus() requestStatus {
	return requestStatus{Result: true, Code: 100}
}

func TestDialNoAuth(t *testing.T) {
	srv := (&fakeServer{}).serve(t)
	dialTest(t, srv, "")
}

func TestDialWithAuth(t *testing.T) {
	srv := (&fakeServer{password: "supersecret"}).serve(t)
	dialTest(t, srv, "supersecret")
}

func TestDialAuthRequired(t *testing.T) {
	srv := (&fakeServer{password: "supersecret"}).serve(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := Dial(ctx, wsURL(srv), ""); err == nil {
		t.Fatal("Dial() without a password succeeded against an authenticating server")
	}
	if _, err := Dial(ctx, wsURL(srv), "wrong"); err == nil {
		t.Fatal("Dial() with a wrong password succeeded")
	}
}

func TestAudioInputs(t *testing.T) {
	srv := (&fakeServer{handlers: map[string]func(json.RawMessage) (any, requestStatus){
		"GetInputList": func(json.RawMessage) (any, requestStatus) {
			return map[string]any{
				"inputs": []map[string]string{
					{"inputName": "Mic/Aux", "inputKind": "pulse_input_capture"},
					{"inputName": "Desktop Audio", "inputKind": "pulse_output_capture"},
					{"inputName": "Webcam", "inputKind": "v4l2_input"},
					{"inputName": "USB Mic", "inputKind": "wasapi_input_capture"},
				},
			}, okStatus()
		},
	}}).serve(t)

	c := dialTest(t, srv, "")
	inputs, err := c.AudioInputs(context.Background())
	if err != nil {
		t.Fatalf("AudioInputs() error: %v", err)
	}

	want := []string{"Mic/Aux", "USB Mic"}
	if len(inputs) != len(want) {
		t.Fatalf("AudioInputs() = %v, want %v", inputs, want)
	}
	for i := range want {
		if inputs[i] != want[i] {
			t.Errorf("input %d = %s, want %s", i, inputs[i], want[i])
		}
	}
}

func TestRemoveFilterMissingIsOK(t *testing.T) {
	srv := (&fakeServer{handlers: map[string]func(json.RawMessage) (any, requestStatus){
		"RemoveSourceFilter": func(json.RawMessage) (any, requestStatus) {
			return nil, requestStatus{Result: false, Code: codeResourceNotFound, Comment: "No filter found"}
		},
	}}).serve(t)

	c := dialTest(t, srv, "")
	if err := c.RemoveFilter(context.Background(), "Mic/Aux", "SoundCheck-Gain"); err != nil {
		t.Errorf("RemoveFilter() of a missing filter = %v, want nil", err)
	}
}

func TestCreateFilterFailure(t *testing.T) {
	srv := (&fakeServer{handlers: map[string]func(json.RawMessage) (any, requestStatus){
		"CreateSourceFilter": func(data json.RawMessage) (any, requestStatus) {
			var req struct {
				FilterKind string `json:"filterKind"`
			}
			if err := json.Unmarshal(data, &req); err != nil {
				t.Errorf("decoding create request: %v", err)
			}
			if req.FilterKind == "expander_filter" {
				return nil, requestStatus{Result: false, Code: 204, Comment: "filter kind not found"}
			}
			return nil, okStatus()
		},
	}}).serve(t)

	c := dialTest(t, srv, "")
	ctx := context.Background()
	if err := c.CreateFilter(ctx, "Mic/Aux", "SoundCheck-Gain", "gain_filter", map[string]any{"db": 9.8}); err != nil {
		t.Errorf("CreateFilter() error: %v", err)
	}
	err := c.CreateFilter(ctx, "Mic/Aux", "SoundCheck-Expander", "expander_filter", nil)
	if err == nil || !strings.Contains(err.Error(), "filter kind not found") {
		t.Errorf("CreateFilter() error = %v, want the server comment", err)
	}
}
