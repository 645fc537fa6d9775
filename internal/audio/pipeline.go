package audio

import (
	"fmt"
	"log/slog"
	"sync"
)

const captureChannels = 1

// FrameSink receives each fixed-size PCM16 frame as soon as it is complete.
type FrameSink func(frame []byte)

type PipelineConfig struct {
	SampleRate int
	FrameBytes int
}

// Pipeline owns the microphone (and optional camera) tracks for one recording
// attempt. Frames reach the sink only while the user mute and the speech mute
// are both off.
type Pipeline struct {
	devices Devices
	cfg     PipelineConfig

	mu          sync.Mutex
	mic         Track
	cam         Track
	open        bool
	userMuted   bool
	speechMuted bool
	framer      *framer
	sink        FrameSink
	sentFrames  int64
}

func NewPipeline(devices Devices, cfg PipelineConfig) *Pipeline {
	return &Pipeline{
		devices: devices,
		cfg:     cfg,
		framer:  newFramer(cfg.FrameBytes),
	}
}

func (p *Pipeline) Open(wantsVideo bool, sink FrameSink) error {
	p.mu.Lock()
	if p.open {
		p.mu.Unlock()
		return errPipelineAlreadyOpen
	}
	p.mu.Unlock()

	mic, err := p.devices.OpenMicrophone(CaptureConfig{SampleRate: p.cfg.SampleRate, Channels: captureChannels}, p.onData)
	if err != nil {
		return fmt.Errorf("open microphone: %w", err)
	}
	var cam Track
	if wantsVideo {
		cam, err = p.devices.OpenCamera()
		if err != nil {
			releaseTrack("microphone", mic)
			return fmt.Errorf("open camera: %w", err)
		}
	}

	p.mu.Lock()
	p.mic = mic
	p.cam = cam
	p.sink = sink
	p.open = true
	p.sentFrames = 0
	p.framer.reset()
	mic.SetEnabled(p.gateLocked())
	p.mu.Unlock()

	if err := mic.Start(); err != nil {
		p.Close()
		return fmt.Errorf("start microphone: %w", err)
	}
	if cam != nil {
		if err := cam.Start(); err != nil {
			p.Close()
			return fmt.Errorf("start camera: %w", err)
		}
	}
	slog.Info("capture pipeline opened", "sample_rate", p.cfg.SampleRate, "frame_bytes", p.cfg.FrameBytes, "video", cam != nil)
	return nil
}

func (p *Pipeline) onData(pcm []byte) {
	p.mu.Lock()
	if !p.open || !p.gateLocked() {
		p.framer.reset()
		p.mu.Unlock()
		return
	}
	frames := p.framer.push(pcm)
	sink := p.sink
	p.sentFrames += int64(len(frames))
	p.mu.Unlock()

	if sink == nil {
		return
	}
	for _, frame := range frames {
		sink(frame)
	}
}

// SetUserMuted records the user's manual mute preference.
func (p *Pipeline) SetUserMuted(muted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userMuted = muted
	p.applyGateLocked()
}

// SetSpeechMuted is driven by speech output start/finish.
func (p *Pipeline) SetSpeechMuted(muted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.speechMuted = muted
	p.applyGateLocked()
}

func (p *Pipeline) applyGateLocked() {
	enabled := p.gateLocked()
	if !enabled {
		p.framer.reset()
	}
	if p.mic != nil {
		p.mic.SetEnabled(enabled)
	}
}

func (p *Pipeline) gateLocked() bool {
	return !p.userMuted && !p.speechMuted
}

// MicEnabled reports the state of the mute gate while the pipeline is open.
func (p *Pipeline) MicEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open && p.gateLocked()
}

func (p *Pipeline) UserMuted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.userMuted
}

func (p *Pipeline) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

func (p *Pipeline) SentFrames() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sentFrames
}

// Close stops every track and drops the sink. Safe to call repeatedly.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if !p.open {
		p.mu.Unlock()
		return
	}
	mic, cam := p.mic, p.cam
	sent := p.sentFrames
	p.mic = nil
	p.cam = nil
	p.sink = nil
	p.open = false
	p.framer.reset()
	p.mu.Unlock()

	releaseTrack("microphone", mic)
	releaseTrack("camera", cam)
	slog.Info("capture pipeline closed", "sent_frames", sent)
}

func releaseTrack(name string, t Track) {
	if t == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("recovered panic while releasing track", "track", name, "panic", r)
		}
	}()
	t.Stop()
	t.Close()
}
