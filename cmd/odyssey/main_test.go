package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-procure/internal/app"
	"github.com/odyssey-erp/odyssey-procure/internal/testing/guard"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	require.Equal(t, "1", os.Getenv(guard.EnvVar))
	app.RefreshTestMode()
	require.True(t, app.InTestMode())
	main()
}
