package negotiation

import (
	"go.uber.org/fx"

	"github.com/caiohomem/assistente-sub001/internal/negotiation/repository"
	"github.com/caiohomem/assistente-sub001/internal/negotiation/service"
)

var Module = fx.Module("negotiation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
