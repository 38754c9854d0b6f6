package http

import (
	"go.uber.org/fx"

	ordertransport "github.com/Additional-Code/orderdesk/internal/transport/http/order"
)

// Module mounts every HTTP route group. The probe routes live with the server.
var Module = fx.Module("http_transport",
	ordertransport.Module,
)
