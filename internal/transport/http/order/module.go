package order

import (
	"go.uber.org/fx"
)

// Module provides the order Handler and mounts its routes on the shared router.
var Module = fx.Module("http_order",
	fx.Provide(NewHandler),
	fx.Invoke(Register),
)
