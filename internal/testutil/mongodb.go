package testutil

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	mongoImage    = "mongo:7.0"
	mongoUser     = "test"
	mongoPassword = "test"
)

// MongoDBContainer represents a test MongoDB container
type MongoDBContainer struct {
	testcontainers.Container

	// Endpoint carries the user name but no password; Credential is the password.
	Endpoint   string
	Credential string
}

// SetupMongoDBContainer creates and starts a MongoDB container for testing
func SetupMongoDBContainer(ctx context.Context) (*MongoDBContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        mongoImage,
		ExposedPorts: []string{"27017/tcp"},
		// The entrypoint restarts mongod once the root user is created.
		WaitingFor: wait.ForLog("Waiting for connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
		Env: map[string]string{
			"MONGO_INITDB_ROOT_USERNAME": mongoUser,
			"MONGO_INITDB_ROOT_PASSWORD": mongoPassword,
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "27017")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	return &MongoDBContainer{
		Container:  container,
		Endpoint:   fmt.Sprintf("mongodb://%s@%s:%s/?authSource=admin", mongoUser, host, port.Port()),
		Credential: mongoPassword,
	}, nil
}

// WithMongoDBContainer is a test helper that provides a MongoDB container
func WithMongoDBContainer(t *testing.T, testFunc func(ctx context.Context, c *MongoDBContainer)) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping container test in short mode")
	}
	if os.Getenv("CI") == "true" && os.Getenv("DOCKER_HOST") == "" {
		t.Skip("Skipping test that requires Docker in CI environment")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	container, err := SetupMongoDBContainer(ctx)
	if err != nil {
		t.Fatalf("Failed to setup MongoDB container: %v", err)
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate container: %v", err)
		}
	}()

	testFunc(ctx, container)
}

// DatabaseName returns a name unique to the test run.
func DatabaseName(prefix string) string {
	return prefix + "_" + uuid.NewString()[:8]
}
