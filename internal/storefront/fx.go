package storefront

import (
	"github.com/smallbiznis/rolegate/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("storefront",
	fx.Provide(func(cfg config.Config) *Verifier {
		return NewVerifier(cfg.WebhookSecret)
	}),
)
