package factor

import (
	"github.com/ecoledger/ecoledger/internal/factor/service"
	"go.uber.org/fx"
)

var Module = fx.Module("factor.service",
	fx.Provide(service.NewService),
)
