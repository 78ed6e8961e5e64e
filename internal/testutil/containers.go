package testutil

import (
	"context"
	"net"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// StartRedis starts a Redis container and returns its address. The container
// is terminated when the test finishes.
func StartRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	container := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	})

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}
	return net.JoinHostPort(containerHost(t, container), port.Port())
}

// StartMemcached starts a memcached container and returns its address.
func StartMemcached(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	container := startContainer(t, testcontainers.ContainerRequest{
		Image:        "memcached:1.6-alpine",
		ExposedPorts: []string{"11211/tcp"},
		WaitingFor:   wait.ForListeningPort("11211/tcp"),
	})

	port, err := container.MappedPort(ctx, "11211")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}
	return net.JoinHostPort(containerHost(t, container), port.Port())
}

func startContainer(t *testing.T, req testcontainers.ContainerRequest) testcontainers.Container {
	t.Helper()

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start %s container: %v", req.Image, err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate %s container: %v", req.Image, err)
		}
	})

	return container
}

func containerHost(t *testing.T, container testcontainers.Container) string {
	t.Helper()

	host, err := container.Host(context.Background())
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	return host
}
