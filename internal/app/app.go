package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/orderdesk/internal/config"
	"github.com/Additional-Code/orderdesk/internal/lock"
	"github.com/Additional-Code/orderdesk/internal/logger"
	"github.com/Additional-Code/orderdesk/internal/messaging"
	"github.com/Additional-Code/orderdesk/internal/observability"
	repositoryorder "github.com/Additional-Code/orderdesk/internal/repository/order"
	"github.com/Additional-Code/orderdesk/internal/seeder"
	grpcserver "github.com/Additional-Code/orderdesk/internal/server/grpc"
	httpserver "github.com/Additional-Code/orderdesk/internal/server/http"
	serviceorder "github.com/Additional-Code/orderdesk/internal/service/order"
	transporthttp "github.com/Additional-Code/orderdesk/internal/transport/http"
	"github.com/Additional-Code/orderdesk/internal/worker"
	workerorder "github.com/Additional-Code/orderdesk/internal/worker/order"
)

// Core provides the store, the order operations and their supporting infrastructure.
var Core = fx.Options(
	config.Module,
	logger.Module,
	observability.Module,
	lock.Module,
	messaging.Module,
	repositoryorder.Module,
	serviceorder.Module,
)

// HTTP wires the HTTP transport, plus the optional gRPC endpoint, on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker runs the audit event consumer.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Seed adds the sample data seeder to the core.
var Seed = fx.Options(
	Core,
	seeder.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
