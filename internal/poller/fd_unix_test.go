//go:build linux || darwin

package poller

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWriteCloseFD(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)

	n, err := WriteFD(int(w.Fd()), []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	buf := make([]byte, 5)
	n, err = ReadFD(int(r.Fd()), buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	assert.NoError(t, CloseFD(int(r.Fd())))
	assert.NoError(t, CloseFD(int(w.Fd())))
}
