package audio

import "errors"

var (
	ErrPermissionDenied    = errors.New("media permission denied")
	ErrDeviceUnavailable   = errors.New("media device unavailable")
	errPipelineAlreadyOpen = errors.New("capture pipeline is already open")
)

type CaptureConfig struct {
	SampleRate int
	Channels   int
}

// DataCallback receives raw little-endian PCM16 bytes as the device produces them.
type DataCallback func(pcm []byte)

// Track is an open hardware capture handle.
type Track interface {
	Start() error
	// SetEnabled gates the track without releasing the device.
	SetEnabled(enabled bool)
	Stop()
	Close()
}

type Devices interface {
	OpenMicrophone(cfg CaptureConfig, cb DataCallback) (Track, error)
	OpenCamera() (Track, error)
}
