package session

import (
	"github.com/foxseedlab/shadowinterview/internal/audio"
	"github.com/foxseedlab/shadowinterview/internal/config"
	"github.com/foxseedlab/shadowinterview/internal/interview"
	"github.com/foxseedlab/shadowinterview/internal/repository"
	"github.com/foxseedlab/shadowinterview/internal/speech"
	"github.com/foxseedlab/shadowinterview/internal/transcriber"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Orchestrator, error) {
		cfg := do.MustInvoke[*config.Config](i)
		backend := do.MustInvoke[interview.Client](i)
		speechOut := do.MustInvoke[*speech.Controller](i)
		capture := do.MustInvoke[*audio.Pipeline](i)
		dialer := do.MustInvoke[transcriber.Dialer](i)
		journal := do.MustInvoke[repository.Repository](i)
		return NewOrchestrator(cfg, backend, speechOut, capture, dialer, journal), nil
	})
}
