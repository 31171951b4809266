package emission

import (
	"github.com/ecoledger/ecoledger/internal/emission/service"
	"go.uber.org/fx"
)

var Module = fx.Module("emission.service",
	fx.Provide(service.NewService),
)
