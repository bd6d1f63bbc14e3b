package escrow

import (
	"go.uber.org/fx"

	"github.com/caiohomem/assistente-sub001/internal/escrow/repository"
	"github.com/caiohomem/assistente-sub001/internal/escrow/service"
)

var Module = fx.Module("escrow.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
