package audio

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/foxseedlab/shadowinterview/internal/audio"
	"github.com/gen2brain/malgo"
)

// MalgoDevices captures from the default system microphone. Camera capture
// is not available on this host.
type MalgoDevices struct {
	mu  sync.Mutex
	ctx *malgo.AllocatedContext
}

func NewMalgoDevices() *MalgoDevices {
	return &MalgoDevices{}
}

func (d *MalgoDevices) context() (*malgo.AllocatedContext, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx != nil {
		return d.ctx, nil
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		slog.Debug("malgo", "message", strings.TrimSpace(message))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: init audio context: %v", audio.ErrDeviceUnavailable, err)
	}
	d.ctx = ctx
	return ctx, nil
}

func (d *MalgoDevices) OpenMicrophone(cfg audio.CaptureConfig, cb audio.DataCallback) (audio.Track, error) {
	ctx, err := d.context()
	if err != nil {
		return nil, err
	}
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)

	track := &malgoTrack{}
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			if !track.enabled.Load() || len(input) == 0 {
				return
			}
			cb(input)
		},
	}
	dev, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, classifyDeviceError(err)
	}
	track.device = dev
	return track, nil
}

func (d *MalgoDevices) OpenCamera() (audio.Track, error) {
	return nil, fmt.Errorf("%w: camera capture is not supported", audio.ErrDeviceUnavailable)
}

// Close releases the shared audio context.
func (d *MalgoDevices) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx == nil {
		return
	}
	_ = d.ctx.Uninit()
	d.ctx.Free()
	d.ctx = nil
}

// classifyDeviceError maps backend failures onto the capture sentinels.
func classifyDeviceError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "access denied") || strings.Contains(msg, "permission") {
		return fmt.Errorf("%w: %v", audio.ErrPermissionDenied, err)
	}
	return fmt.Errorf("%w: %v", audio.ErrDeviceUnavailable, err)
}

type malgoTrack struct {
	device  *malgo.Device
	enabled atomic.Bool
	once    sync.Once
}

func (t *malgoTrack) Start() error {
	if err := t.device.Start(); err != nil {
		return classifyDeviceError(err)
	}
	return nil
}

func (t *malgoTrack) SetEnabled(enabled bool) {
	t.enabled.Store(enabled)
}

func (t *malgoTrack) Stop() {
	t.enabled.Store(false)
	_ = t.device.Stop()
}

func (t *malgoTrack) Close() {
	t.once.Do(t.device.Uninit)
}
