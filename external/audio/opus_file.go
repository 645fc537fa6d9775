//go:build opus

package audio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foxseedlab/shadowinterview/internal/audio"
	"github.com/hraban/opus"
)

const (
	opusSampleRate  = 48000
	opusChunkMs     = 20
	opusChunkSample = opusSampleRate * opusChunkMs / 1000
)

// OpusFileDevices replays a mono Ogg Opus recording in real time as if it
// were a microphone.
type OpusFileDevices struct {
	path string
}

func NewOpusFileDevices(path string) audio.Devices {
	return &OpusFileDevices{path: path}
}

func (d *OpusFileDevices) OpenMicrophone(cfg audio.CaptureConfig, cb audio.DataCallback) (audio.Track, error) {
	factor, err := decimationFactor(opusSampleRate, cfg.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", audio.ErrDeviceUnavailable, err)
	}
	f, err := os.Open(d.path)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", audio.ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("%w: %v", audio.ErrDeviceUnavailable, err)
	}
	stream, err := opus.NewStream(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: open opus stream: %v", audio.ErrDeviceUnavailable, err)
	}
	return &opusFileTrack{
		file:   f,
		stream: stream,
		factor: factor,
		cb:     cb,
		stop:   make(chan struct{}),
	}, nil
}

func (d *OpusFileDevices) OpenCamera() (audio.Track, error) {
	return nil, fmt.Errorf("%w: camera capture is not supported", audio.ErrDeviceUnavailable)
}

type opusFileTrack struct {
	file    *os.File
	stream  *opus.Stream
	factor  int
	cb      audio.DataCallback
	enabled atomic.Bool

	stopOnce  sync.Once
	closeOnce sync.Once
	stop      chan struct{}
	wg        sync.WaitGroup
}

func (t *opusFileTrack) Start() error {
	t.wg.Add(1)
	go t.run()
	return nil
}

func (t *opusFileTrack) run() {
	defer t.wg.Done()
	ticker := time.NewTicker(opusChunkMs * time.Millisecond)
	defer ticker.Stop()
	pcm := make([]int16, opusChunkSample)
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
		}
		n, err := t.stream.Read(pcm)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Warn("failed to decode opus file", "error", err)
			}
			return
		}
		if n == 0 || !t.enabled.Load() {
			continue
		}
		t.cb(decimatePCM16(pcm[:n], t.factor))
	}
}

func (t *opusFileTrack) SetEnabled(enabled bool) {
	t.enabled.Store(enabled)
}

func (t *opusFileTrack) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
	t.wg.Wait()
}

func (t *opusFileTrack) Close() {
	t.Stop()
	t.closeOnce.Do(func() {
		_ = t.stream.Close()
		_ = t.file.Close()
	})
}
