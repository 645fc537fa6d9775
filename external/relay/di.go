package relay

import (
	"github.com/foxseedlab/shadowinterview/internal/config"
	"github.com/foxseedlab/shadowinterview/internal/transcriber"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		c := do.MustInvoke[*config.Config](i)
		stt := do.MustInvoke[transcriber.Transcriber](i)
		return NewServer(c.RelayListenAddr, stt, c.TranscribeLanguage), nil
	})
}
