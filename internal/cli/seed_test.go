package cli

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"voice-quiz-service/internal/config"
)

func TestInvalidateSharedCatalog(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("quiz:catalog", `[{"id":"old"}]`))

	cfg := config.Default()
	cfg.Redis.Addr = mr.Addr()
	require.NoError(t, invalidateSharedCatalog(context.Background(), cfg))
	assert.False(t, mr.Exists("quiz:catalog"))
}

func TestInvalidateSharedCatalogWithoutRedis(t *testing.T) {
	assert.NoError(t, invalidateSharedCatalog(context.Background(), config.Default()))
}
