package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grammatech/gtirb-lsp-go/internal/session"
)

func TestResolveLocalPaths(t *testing.T) {
	t.Parallel()
	paths, err := session.ResolveLocalPaths("/proj/.vscode.foo/x64/foo.view")
	require.NoError(t, err)
	assert.Equal(t, "/proj", paths.Dir)
	assert.Equal(t, "foo", paths.BIRName)
	assert.Equal(t, "x64", paths.ISA)
	assert.Equal(t, "/proj/foo", paths.BIRPath)
	assert.Equal(t, "/proj/.vscode.foo/x64/foo.view.json", paths.IndexPath)
}

func TestResolveLocalPathsRejectsMismatch(t *testing.T) {
	t.Parallel()
	_, err := session.ResolveLocalPaths("/proj/.vscode.foo/x64/bar.view")
	assert.Error(t, err)
}

func TestResolveLocalPathsRejectsUnrecognizedShape(t *testing.T) {
	t.Parallel()
	_, err := session.ResolveLocalPaths("/proj/foo.view")
	assert.Error(t, err)
}

func TestRemoteCachePathIsDeterministic(t *testing.T) {
	t.Parallel()
	bir1, idx1 := session.RemoteCachePath("/tmp", "10.0.0.1", "file:///proj/foo.view")
	bir2, idx2 := session.RemoteCachePath("/tmp", "10.0.0.1", "file:///proj/foo.view")
	assert.Equal(t, bir1, bir2)
	assert.Equal(t, idx1, idx2)
	assert.Equal(t, bir1+".json", idx1)

	bir3, _ := session.RemoteCachePath("/tmp", "10.0.0.2", "file:///proj/foo.view")
	assert.NotEqual(t, bir1, bir3)
}
