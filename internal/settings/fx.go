package settings

import (
	settingsdomain "github.com/smallbiznis/lingoflow/internal/settings/domain"
	"github.com/smallbiznis/lingoflow/internal/settings/repository"
	"github.com/smallbiznis/lingoflow/internal/settings/service"
	"go.uber.org/fx"
)

var Module = fx.Module("settings.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(svc settingsdomain.Service) settingsdomain.Resolver { return svc }),
)
