package audio

import (
	"github.com/foxseedlab/shadowinterview/internal/audio"
	"github.com/foxseedlab/shadowinterview/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (audio.Devices, error) {
		c := do.MustInvoke[*config.Config](i)
		if c.AudioSource == config.AudioSourceOpusFile {
			return NewOpusFileDevices(c.AudioOpusFile), nil
		}
		return NewMalgoDevices(), nil
	})
	do.Provide(injector, func(i do.Injector) (*audio.Pipeline, error) {
		c := do.MustInvoke[*config.Config](i)
		devices := do.MustInvoke[audio.Devices](i)
		return audio.NewPipeline(devices, audio.PipelineConfig{
			SampleRate: c.AudioSampleRate,
			FrameBytes: c.AudioFrameBytes(),
		}), nil
	})
}
