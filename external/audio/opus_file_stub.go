//go:build !opus

package audio

import (
	"fmt"

	"github.com/foxseedlab/shadowinterview/internal/audio"
)

type OpusFileDevices struct {
	path string
}

func NewOpusFileDevices(path string) audio.Devices {
	return &OpusFileDevices{path: path}
}

func (d *OpusFileDevices) OpenMicrophone(_ audio.CaptureConfig, _ audio.DataCallback) (audio.Track, error) {
	return nil, fmt.Errorf("%w: opus playback requires building with -tags opus (%s)", audio.ErrDeviceUnavailable, d.path)
}

func (d *OpusFileDevices) OpenCamera() (audio.Track, error) {
	return nil, fmt.Errorf("%w: camera capture is not supported", audio.ErrDeviceUnavailable)
}
