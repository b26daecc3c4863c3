package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

// testContext creates a context with timeout for tests
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func randomSuffix() string {
	return uuid.New().String()[:8]
}
