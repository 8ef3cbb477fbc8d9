package oauth

import "go.uber.org/fx"

var Module = fx.Module("oauth",
	fx.Provide(NewService),
)
