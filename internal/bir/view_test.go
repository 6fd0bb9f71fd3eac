package bir_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grammatech/gtirb-lsp-go/internal/bir"
)

func TestViewSymbolByName(t *testing.T) {
	t.Parallel()
	m := fixtureModule(t)
	view := bir.NewView(m)

	sym, ok := view.SymbolByName("main")
	require.True(t, ok)
	assert.Equal(t, "main", sym.Name)

	_, ok = view.SymbolByName("does-not-exist")
	assert.False(t, ok)
}

func TestViewByteBlocksOn(t *testing.T) {
	t.Parallel()
	m := fixtureModule(t)
	view := bir.NewView(m)

	blocks := view.ByteBlocksOn(0x401130)
	require.Len(t, blocks, 1)
	assert.Equal(t, uint64(0x401130), blocks[0].Address)

	assert.Empty(t, view.ByteBlocksOn(0xdeadbeef))
}

func TestViewAllSymbolicExpressions(t *testing.T) {
	t.Parallel()
	m := fixtureModule(t)
	view := bir.NewView(m)

	refs := view.AllSymbolicExpressions()
	require.Len(t, refs, 1)
	assert.Equal(t, uint64(0x401202), refs[0].Address)
}

func TestViewInOutEdges(t *testing.T) {
	t.Parallel()
	m := fixtureModule(t)
	view := bir.NewView(m)

	var calleeBlock uuid.UUID
	for id, b := range m.Blocks {
		if b.Address == 0x401200 {
			calleeBlock = id
		}
	}

	out := view.OutEdges(calleeBlock)
	require.Len(t, out, 1)
	assert.True(t, out[0].Label.Direct)
}

func TestBlockReferencesIndexedAfterDecode(t *testing.T) {
	t.Parallel()
	m, err := bir.Decode(bir.Encode(fixtureModule(t)))
	require.NoError(t, err)

	var mainBlock *bir.Block
	for _, b := range m.Blocks {
		if b.Address == 0x401130 {
			mainBlock = b
		}
	}
	require.NotNil(t, mainBlock)
	require.Len(t, mainBlock.References, 1)
}
