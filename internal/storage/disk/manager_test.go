package disk

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arrayql/latticedb/internal/dbutil"
)

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestManager_WriteThenRead(t *testing.T) {
	path, cleanup := dbutil.CreateTempFile(t)
	defer cleanup()

	m, err := NewManager(path, discardLogger())
	require.NoError(t, err)
	defer m.Close()

	src := make([]byte, dbutil.PageSize)
	copy(src, []byte("hello disk manager"))
	require.NoError(t, m.WritePage(3, src))

	dst := make([]byte, dbutil.PageSize)
	require.NoError(t, m.ReadPage(3, dst))
	assert.Equal(t, src, dst)
}

func TestManager_ReadUnwrittenPageZeroFills(t *testing.T) {
	path, cleanup := dbutil.CreateTempFile(t)
	defer cleanup()

	m, err := NewManager(path, discardLogger())
	require.NoError(t, err)
	defer m.Close()

	dst := make([]byte, dbutil.PageSize)
	for i := range dst {
		dst[i] = 0xFF
	}
	require.NoError(t, m.ReadPage(5, dst))
	for _, b := range dst {
		assert.Equal(t, byte(0), b)
	}
}

func TestManager_WrongSizedBufferErrors(t *testing.T) {
	path, cleanup := dbutil.CreateTempFile(t)
	defer cleanup()

	m, err := NewManager(path, discardLogger())
	require.NoError(t, err)
	defer m.Close()

	assert.Error(t, m.WritePage(0, make([]byte, 10)))
	assert.Error(t, m.ReadPage(0, make([]byte, 10)))
}

func TestManager_SizeGrowsWithWrites(t *testing.T) {
	path, cleanup := dbutil.CreateTempFile(t)
	defer cleanup()

	m, err := NewManager(path, discardLogger())
	require.NoError(t, err)
	defer m.Close()

	before, err := m.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(0), before)

	require.NoError(t, m.WritePage(0, make([]byte, dbutil.PageSize)))
	after, err := m.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(dbutil.PageSize), after)
}
