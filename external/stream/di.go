package stream

import (
	"github.com/foxseedlab/shadowinterview/internal/transcriber"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (transcriber.Dialer, error) {
		return NewWebsocketDialer(), nil
	})
}
