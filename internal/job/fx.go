package job

import (
	"github.com/smallbiznis/lingoflow/internal/job/repository"
	"github.com/smallbiznis/lingoflow/internal/job/service"
	"go.uber.org/fx"
)

var Module = fx.Module("job.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(service.NewLedger),
)
