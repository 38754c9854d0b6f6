package grpc

import (
	"context"
	"os"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// StorageService is the health service name tracking the orders file.
const StorageService = "orderdesk.storage"

// RefreshStorageHealth reports the storage service as serving while the orders file exists.
// The overall ("") service is always serving: a missing file is a valid empty state.
func RefreshStorageHealth(hs *health.Server, path string) {
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	state := healthpb.HealthCheckResponse_NOT_SERVING
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		state = healthpb.HealthCheckResponse_SERVING
	}
	hs.SetServingStatus(StorageService, state)
}

// WatchStorage refreshes the storage health every interval until ctx is cancelled.
func WatchStorage(ctx context.Context, hs *health.Server, path string, interval time.Duration) {
	RefreshStorageHealth(hs, path)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			RefreshStorageHealth(hs, path)
		}
	}
}
