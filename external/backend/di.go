package backend

import (
	"github.com/foxseedlab/shadowinterview/internal/config"
	"github.com/foxseedlab/shadowinterview/internal/interview"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (interview.Client, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewHTTPClient(c.BackendBaseURL, c.BackendTimeout)
	})
}
