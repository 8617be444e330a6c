package utils

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashing(t *testing.T) {
	require.Equal(t, HashString("abc"), HashBytes([]byte("a"), []byte("bc")))
	require.NotEqual(t, HashString("abc"), HashString("abd"))

	short := ShortHash("2025-01-01T00:00:00Z", 8)
	require.Len(t, short, 8)
	require.Equal(t, short, ShortHash("2025-01-01T00:00:00Z", 8))
	require.Len(t, ShortHash("x", 0), 16)
}

func TestReadMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.bsv")
	content := "# brand|tags\nAMLONG|CCB\n\nTELMA | RASI,DIURETICS\nbroken line\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := ReadMap(path)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"AMLONG": "CCB", "TELMA": "RASI,DIURETICS"}, m)

	_, err = ReadMap(filepath.Join(t.TempDir(), "missing.bsv"))
	require.Error(t, err)
}

func TestRecoverWithError(t *testing.T) {
	run := func() (err error) {
		defer RecoverWithError(&err)
		panic(errors.New("boom"))
	}
	err := run()
	require.EqualError(t, err, "got panic: boom")
	require.ErrorIs(t, err, ErrPanic)

	quiet := func() (err error) {
		defer RecoverWithError(&err)
		return nil
	}
	require.NoError(t, quiet())
}
