//go:build integration

// Package firestoretest starts a Firestore emulator container for integration tests.
package firestoretest

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/shutterbay/api/internal/platform/config"
	pfirestore "github.com/shutterbay/api/internal/platform/firestore"
)

const emulatorImage = "gcr.io/google.com/cloudsdktool/cloud-sdk:emulators"

// NewProvider starts an emulator and returns a Provider bound to it. Tests are skipped when
// no container runtime is reachable.
func NewProvider(t *testing.T) *pfirestore.Provider {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        emulatorImage,
			ExposedPorts: []string{"8080/tcp"},
			Cmd: []string{
				"gcloud", "emulators", "firestore", "start",
				"--host-port=0.0.0.0:8080", "--quiet",
			},
			WaitingFor: wait.ForLog("Dev App Server is now running").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("firestore emulator unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("emulator endpoint: %v", err)
	}

	provider := pfirestore.NewProvider(config.FirestoreConfig{ProjectID: "shop-test", EmulatorHost: endpoint})
	t.Cleanup(func() {
		_ = provider.Close(context.Background())
	})
	return provider
}
