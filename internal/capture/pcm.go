package capture

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// CommandSource captures audio by running a platform capture command and
// reading raw s16le PCM from its stdout. Frames are decoded to float32 and
// delivered to the registered callback from a dedicated read goroutine.
//
// The callback mutex is held during delivery. That makes unregistration a
// hard barrier: once UnregisterFrameCallback returns, no in-flight delivery
// can still be running, which is what lets the analyzer tear down safely.
type CommandSource struct {
	device     string
	ffmpegPath string

	mu sync.Mutex
	fn FrameFunc

	runMu  sync.Mutex
	cmd    *exec.Cmd
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCommandSource creates a source for the given input device. An empty
// device selects the platform default.
func NewCommandSource(device, ffmpegPath string) *CommandSource {
	return &CommandSource{device: device, ffmpegPath: ffmpegPath}
}

// Name returns the device identifier for display.
func (s *CommandSource) Name() string {
	if s.device == "" {
		return "default input"
	}
	return s.device
}

// RegisterFrameCallback installs fn as the frame receiver, replacing any
// previous callback.
func (s *CommandSource) RegisterFrameCallback(fn FrameFunc) {
	s.mu.Lock()
	s.fn = fn
	s.mu.Unlock()
}

// UnregisterFrameCallback removes the frame receiver. It blocks until any
// delivery in progress has returned.
func (s *CommandSource) UnregisterFrameCallback() {
	s.mu.Lock()
	s.fn = nil
	s.mu.Unlock()
}

// Start spawns the capture command and begins delivering frames. It fails
// if the source is already running or the command cannot be started.
func (s *CommandSource) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.cmd != nil {
		return errors.New("capture: source already started")
	}

	command, args, err := BuildCaptureCommand(s.device, s.ffmpegPath)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, command, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("capture: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("capture: starting %s: %w", command, err)
	}

	s.cmd = cmd
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.readLoop(stdout)

	return nil
}

// Done returns a channel that closes when the capture command exits, for
// whatever reason. Nil before Start.
func (s *CommandSource) Done() <-chan struct{} {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.done
}

// Stop terminates the capture command and waits for the read goroutine to
// drain. Safe to call when not running.
func (s *CommandSource) Stop() {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.cmd == nil {
		return
	}
	s.cancel()
	<-s.done
	_ = s.cmd.Wait()
	s.cmd = nil
	s.cancel = nil
	s.done = nil
}

// readLoop reads fixed-size PCM chunks and hands decoded frames to the
// registered callback until stdout closes.
func (s *CommandSource) readLoop(r io.Reader) {
	defer close(s.done)

	buf := make([]byte, FrameSamples*2)
	samples := make([]float32, FrameSamples)

	for {
		n, err := io.ReadFull(r, buf)
		if n >= 2 {
			count := n / 2
			decodeS16LE(buf[:count*2], samples[:count])
			s.deliver(Frame{Samples: samples[:count]})
		}
		if err != nil {
			return
		}
	}
}

func (s *CommandSource) deliver(frame Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fn != nil {
		s.fn(frame)
	}
}

// decodeS16LE converts little-endian signed 16-bit PCM to float32 in
// [-1, 1). len(out) must be len(buf)/2.
func decodeS16LE(buf []byte, out []float32) {
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(buf[i*2:]))
		out[i] = float32(v) / 32768.0
	}
}
