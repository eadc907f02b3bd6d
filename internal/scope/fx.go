package scope

import (
	"github.com/smallbiznis/lingoflow/internal/scope/repository"
	"github.com/smallbiznis/lingoflow/internal/scope/service"
	"go.uber.org/fx"
)

var Module = fx.Module("scope.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewRegistry),
	fx.Provide(service.New),
)
