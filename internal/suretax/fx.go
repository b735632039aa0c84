package suretax

import "go.uber.org/fx"

var Module = fx.Module("suretax",
	fx.Provide(NewSubmitter),
)
