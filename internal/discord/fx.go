package discord

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("discord",
	fx.Provide(NewClient),
	fx.Invoke(registerConnect),
)

// registerConnect validates the bot token at startup. A failed identify is
// logged but does not block the app: health reports the bot as disconnected
// and webhook handling surfaces upstream errors per request.
func registerConnect(lc fx.Lifecycle, svc Service, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			user, err := svc.Me(ctx)
			if err != nil {
				log.Warn("discord identify failed", zap.Error(err))
				return nil
			}
			log.Info("discord bot connected",
				zap.String("bot_id", user.ID),
				zap.String("bot_username", user.Username),
			)
			return nil
		},
	})
}
