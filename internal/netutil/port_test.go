package netutil_test

import (
	"fmt"
	"net"
	"testing"

	"auditgate/internal/netutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreePort(t *testing.T) {
	port, err := netutil.FreePort()
	require.NoError(t, err)
	assert.Greater(t, port, 0)
}

func TestIsPortAvailable(t *testing.T) {
	port, err := netutil.FreePort()
	require.NoError(t, err)

	assert.True(t, netutil.IsPortAvailable(port))

	// Occupy the port and probe again
	l, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	require.NoError(t, err)
	defer l.Close()

	assert.False(t, netutil.IsPortAvailable(port))
}
