package taxitem

import (
	"github.com/evertel/billrun/internal/taxitem/repository"
	"github.com/evertel/billrun/internal/taxitem/service"
	"go.uber.org/fx"
)

var Module = fx.Module("taxitem",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewTransformer),
)
