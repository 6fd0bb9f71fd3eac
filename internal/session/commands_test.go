package session_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grammatech/gtirb-lsp-go/internal/bir"
	"github.com/grammatech/gtirb-lsp-go/internal/index"
	"github.com/grammatech/gtirb-lsp-go/internal/listing"
	"github.com/grammatech/gtirb-lsp-go/internal/session"
)

func fixtureSession(t *testing.T) *session.Session {
	t.Helper()
	blockID := uuid.New()
	symID := uuid.New()

	m := bir.NewModule()
	m.Blocks[blockID] = &bir.Block{UUID: blockID, Kind: bir.CodeBlock, Address: 0x401130, Size: 4}
	m.Symbols = append(m.Symbols, &bir.Symbol{UUID: symID, Name: "main", Referent: &blockID})
	fnID := uuid.New()
	m.Functions[fnID] = &bir.Function{UUID: fnID, Symbol: symID, Blocks: []uuid.UUID{blockID}}
	m.Reindex()

	lines := []string{
		"main:",
		"  push RBP # EA: 0x401130",
		"  nop # EA: 0x401131",
		"  nop # EA: 0x401132",
		"  ret # EA: 0x401133",
	}

	view := bir.NewView(m)
	idx, err := index.Build(view, listing.ExtractAddressLines(lines))
	require.NoError(t, err)

	return session.New("file:///proj/.vscode.foo/x64/foo.view", session.Paths{}, false, m, idx, lines)
}

func TestGetLineFromAddress(t *testing.T) {
	t.Parallel()
	s := fixtureSession(t)

	loc, err := session.GetLineFromAddress(s, "0x401131")
	require.NoError(t, err)
	assert.Equal(t, 2, loc.Line)
}

func TestGetLineFromAddressOutOfRange(t *testing.T) {
	t.Parallel()
	s := fixtureSession(t)

	_, err := session.GetLineFromAddress(s, "0x999999")
	assert.Error(t, err)
}

func TestGetAddressOfSymbol(t *testing.T) {
	t.Parallel()
	s := fixtureSession(t)

	addr, ok := session.GetAddressOfSymbol(s, "main")
	require.True(t, ok)
	assert.Equal(t, "0x401130", addr)

	_, ok = session.GetAddressOfSymbol(s, "nonexistent")
	assert.False(t, ok)
}

func TestGetLineAddressList(t *testing.T) {
	t.Parallel()
	s := fixtureSession(t)

	list := session.GetLineAddressList(s)
	require.Len(t, list, 4)
	assert.Equal(t, 1, list[0].Line)
	assert.Equal(t, uint64(0x401130), list[0].Address)
}

func TestGetFunctionLocations(t *testing.T) {
	t.Parallel()
	s := fixtureSession(t)

	locs := session.GetFunctionLocations(s)
	require.Len(t, locs, 1)
	assert.Equal(t, 0, locs[0].Line)
}

func TestGetModuleNameFallback(t *testing.T) {
	t.Parallel()
	s := fixtureSession(t)
	assert.Equal(t, "module0", session.GetModuleName(s, 0))
}
