package cyclemetrics

import "go.uber.org/fx"

var Module = fx.Module("cyclemetrics",
	fx.Provide(New),
)
