package serial

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	bugst "go.bug.st/serial"
)

func TestOpenMissingDevice(t *testing.T) {
	dev := filepath.Join(t.TempDir(), "ttyMissing")
	pump, err := Open(Config{Device: dev})
	require.Nil(t, pump)
	require.Error(t, err)
	require.Contains(t, err.Error(), "open "+dev)

	var portErr *bugst.PortError
	require.ErrorAs(t, err, &portErr)
}
