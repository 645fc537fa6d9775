package speech

import (
	"github.com/foxseedlab/shadowinterview/internal/config"
	"github.com/foxseedlab/shadowinterview/internal/speech"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (speech.Synthesizer, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewCommandSynthesizer(c.TTSCommand), nil
	})
	do.Provide(injector, func(i do.Injector) (*speech.Controller, error) {
		c := do.MustInvoke[*config.Config](i)
		synth := do.MustInvoke[speech.Synthesizer](i)
		return speech.NewController(synth, c.TTSVoice), nil
	})
}
