// Package capture delivers mono float32 audio frames from an input device.
package capture

// Frame is one batch of single-channel samples handed to a frame callback.
// The slice is only valid for the duration of the callback; the source
// reuses the backing buffer for the next read.
type Frame struct {
	Samples []float32
	Muted   bool
}

// FrameFunc receives frames on the capture goroutine. It must not block:
// anything slow here stalls the read loop and eventually the capture
// process's stdout pipe.
type FrameFunc func(Frame)

// Source is anything that can push audio frames to a registered callback.
// Registration is synchronous: once UnregisterFrameCallback returns, the
// callback will not be invoked again, so a caller may safely tear down
// whatever state the callback touches.
type Source interface {
	Name() string
	RegisterFrameCallback(fn FrameFunc)
	UnregisterFrameCallback()
}
