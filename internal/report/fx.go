package report

import (
	"github.com/ecoledger/ecoledger/internal/report/render"
	"github.com/ecoledger/ecoledger/internal/report/service"
	"go.uber.org/fx"
)

var Module = fx.Module("report.service",
	fx.Provide(render.NewRenderer),
	fx.Provide(service.NewService),
)
