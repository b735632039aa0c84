package cycle

import (
	"go.uber.org/fx"

	"github.com/evertel/billrun/internal/cycle/repository"
	"github.com/evertel/billrun/internal/cycle/service"
)

var Module = fx.Module("cycle",
	fx.Provide(
		repository.NewRepository,
		service.NewRunner,
	),
)
