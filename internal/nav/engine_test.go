package nav_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grammatech/gtirb-lsp-go/internal/bir"
	"github.com/grammatech/gtirb-lsp-go/internal/index"
	"github.com/grammatech/gtirb-lsp-go/internal/listing"
	"github.com/grammatech/gtirb-lsp-go/internal/nav"
)

// fixture builds a tiny module with a "main" function that calls itself
// (a self-recursive call is enough to exercise Definition/References
// without needing a second function).
func fixture() (*bir.Module, []string) {
	mainBlock := uuid.New()
	mainSym := uuid.New()
	biID := uuid.New()

	// The call instruction starts at disp 3 (5 bytes, disp 3..7); its
	// relocated operand sits one byte in, at disp 4 (address 0x401134),
	// which is what the symbolic expression below references.
	m := bir.NewModule()
	m.Blocks[mainBlock] = &bir.Block{UUID: mainBlock, Kind: bir.CodeBlock, Address: 0x401130, Size: 9}
	m.Symbols = append(m.Symbols, &bir.Symbol{UUID: mainSym, Name: "main", Referent: &mainBlock})
	m.ByteIntervals = append(m.ByteIntervals, &bir.ByteInterval{
		UUID:    biID,
		Address: 0x401130,
		Size:    9,
		SymbolicExpressions: map[uint64]bir.SymbolicExpression{
			4: {Symbols: []uuid.UUID{mainSym}},
		},
	})
	fnID := uuid.New()
	m.Functions[fnID] = &bir.Function{
		UUID:    fnID,
		Symbol:  mainSym,
		Blocks:  []uuid.UUID{mainBlock},
		Sources: map[string]string{"main.c": "int main() { return 0; }"},
	}
	m.Reindex()

	lines := []string{
		"main:",
		"  push RBP # EA: 0x401130",
		"  nop # EA: 0x401131",
		"  nop # EA: 0x401132",
		"  call main # EA: 0x401133",
	}
	return m, lines
}

func buildEngine(t *testing.T, m *bir.Module, lines []string) *nav.Engine {
	t.Helper()
	view := bir.NewView(m)
	idx, err := index.Build(view, listing.ExtractAddressLines(lines))
	require.NoError(t, err)
	return nav.New(view, idx, lines)
}

func TestDefinitionResolvesLabel(t *testing.T) {
	t.Parallel()
	m, lines := fixture()
	e := buildEngine(t, m, lines)

	loc, err := e.Definition(4, 8) // "main" inside "  call main # EA: ..."
	require.NoError(t, err)
	assert.Equal(t, 0, loc.Line)
}

func TestDefinitionUnknownToken(t *testing.T) {
	t.Parallel()
	m, lines := fixture()
	e := buildEngine(t, m, lines)

	_, err := e.Definition(2, 2) // "nop" is not a symbol
	assert.Error(t, err)
}

func TestReferencesFromDefinitionLine(t *testing.T) {
	t.Parallel()
	m, lines := fixture()
	e := buildEngine(t, m, lines)

	locs, err := e.References(0, 0)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, 4, locs[0].Line)
}

func TestHoverFunctionSources(t *testing.T) {
	t.Parallel()
	m, lines := fixture()
	e := buildEngine(t, m, lines)

	text, err := e.Hover(0, 0)
	require.NoError(t, err)
	assert.Contains(t, text, "main.c")
	assert.Contains(t, text, "int main()")
}

func TestHoverFallback(t *testing.T) {
	t.Parallel()
	m, lines := fixture()
	e := buildEngine(t, m, lines)

	text, err := e.Hover(2, 2)
	require.NoError(t, err)
	assert.Equal(t, "No auxdata found", text)
}
