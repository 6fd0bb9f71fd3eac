package lspserver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/grammatech/gtirb-lsp-go/internal/nav"
)

func TestApplyLineChangeSameCount(t *testing.T) {
	t.Parallel()
	lines := []string{"a", "b", "c", "d"}
	got := applyLineChange(lines, 1, 1, "B")
	assert.Equal(t, []string{"a", "B", "c", "d"}, got)
}

func TestApplyLineChangeGrows(t *testing.T) {
	t.Parallel()
	lines := []string{"a", "b", "c"}
	got := applyLineChange(lines, 1, 1, "x\ny")
	assert.Equal(t, []string{"a", "x", "y", "c"}, got)
}

func TestApplyLineChangeShrinks(t *testing.T) {
	t.Parallel()
	lines := []string{"a", "b", "c", "d"}
	got := applyLineChange(lines, 0, 2, "z")
	assert.Equal(t, []string{"z", "d"}, got)
}

func TestSplitLinesEmpty(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{""}, splitLines(""))
}

func TestToFilePath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "/proj/foo.view", toFilePath("file:///proj/foo.view"))
	assert.Equal(t, "/proj/foo.view", toFilePath("/proj/foo.view"))
}

func TestToProtocolLocation(t *testing.T) {
	t.Parallel()
	loc := toProtocolLocation(protocolURI("file:///proj/foo.view"), []string{"main:"}, nav.Location{Line: 0, StartChar: 0, EndChar: 5})
	assert.Equal(t, uint32(0), loc.Range.Start.Line)
	assert.Equal(t, uint32(5), loc.Range.End.Character)
}
