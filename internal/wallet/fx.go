package wallet

import (
	"go.uber.org/fx"

	"github.com/caiohomem/assistente-sub001/internal/wallet/repository"
	"github.com/caiohomem/assistente-sub001/internal/wallet/service"
)

var Module = fx.Module("wallet.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
