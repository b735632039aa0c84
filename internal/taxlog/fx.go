package taxlog

import (
	"github.com/evertel/billrun/internal/taxlog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("taxlog",
	fx.Provide(service.NewReconciler),
)
