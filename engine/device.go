package engine

// ProcessFunc renders one device buffer. in holds interleaved input frames
// with StreamConfig.InputChannels channels; out receives interleaved output
// frames with StreamConfig.OutputChannels channels. It runs on the device
// goroutine.
type ProcessFunc func(in, out []float32)

// StreamConfig describes the duplex stream the engine asks for.
type StreamConfig struct {
	SampleRate      float64
	FramesPerBuffer int
	InputChannels   int
	OutputChannels  int
}

// Device opens audio streams. Implementations wrap ErrPermissionDenied or
// ErrDeviceNotFound to classify their failures.
type Device interface {
	Open(cfg StreamConfig, process ProcessFunc) (Stream, error)
}

// Stream is an opened device stream.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}
