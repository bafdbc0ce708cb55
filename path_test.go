package svfs

import (
	"testing"

	"github.com/stretchr/testify/require"

	vfserrors "github.com/dargueta/svfs/errors"
)

func TestSplitPathComponents_DropsEmptyAndDotComponents(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, splitPathComponents("/a//./b/"))
	require.Equal(t, []string{}, splitPathComponents(""))
	require.Equal(t, []string{}, splitPathComponents("/"))
}

func TestSplitLastComponent(t *testing.T) {
	dir, name := splitLastComponent("/root/d/f")
	require.Equal(t, "/root/d", dir)
	require.Equal(t, "f", name)

	dir, name = splitLastComponent("/a.txt")
	require.Equal(t, "/", dir)
	require.Equal(t, "a.txt", name)
}

func TestResolvePath_RootLiteralIsNoOp(t *testing.T) {
	e := newTestEngine(t, scenarioGeometry())
	_, target, err := e.resolvePath("/root", false)
	require.NoError(t, err)
	require.EqualValues(t, 0, target.ID)

	_, target, err = e.resolvePath("/", false)
	require.NoError(t, err)
	require.EqualValues(t, 0, target.ID)
}

func TestResolvePath_ParentOfRootIsRoot(t *testing.T) {
	e := newTestEngine(t, scenarioGeometry())
	parent, target, err := e.resolvePath("/root/..", true)
	require.NoError(t, err)
	require.Equal(t, target, parent)
	require.EqualValues(t, 0, target.ID)
}

func TestResolvePath_NotFoundOnMissingComponent(t *testing.T) {
	e := newTestEngine(t, scenarioGeometry())
	_, _, err := e.resolvePath("/root/missing", false)
	require.ErrorIs(t, err, vfserrors.ErrNotFound)
}

func TestResolvePath_NotADirectoryWhenDescendingIntoFile(t *testing.T) {
	e := newTestEngine(t, scenarioGeometry())
	_, err := e.CreateFile("/root/a.txt", []byte("x"))
	require.NoError(t, err)

	_, _, err = e.resolvePath("/root/a.txt/nested", false)
	require.ErrorIs(t, err, vfserrors.ErrNotADirectory)
}

func TestResolvePath_Idempotence(t *testing.T) {
	e := newTestEngine(t, scenarioGeometry())
	_, err := e.CreateDirectory("/root/d")
	require.NoError(t, err)
	_, err = e.CreateFile("/root/d/f", []byte("x"))
	require.NoError(t, err)

	_, first, err := e.resolvePath("/root/d/f", false)
	require.NoError(t, err)

	path := joinPath("/root/d", first.Name)
	_, second, err := e.resolvePath(path, false)
	require.NoError(t, err)

	require.Equal(t, first, second)
}
