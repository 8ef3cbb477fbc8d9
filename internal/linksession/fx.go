package linksession

import (
	"github.com/smallbiznis/rolegate/internal/linksession/repository"
	"github.com/smallbiznis/rolegate/internal/linksession/service"
	"go.uber.org/fx"
)

var Module = fx.Module("linksession.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
