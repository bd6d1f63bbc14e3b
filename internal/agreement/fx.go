package agreement

import (
	"go.uber.org/fx"

	"github.com/caiohomem/assistente-sub001/internal/agreement/repository"
	"github.com/caiohomem/assistente-sub001/internal/agreement/service"
)

var Module = fx.Module("agreement.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
