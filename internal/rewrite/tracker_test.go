package rewrite_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grammatech/gtirb-lsp-go/internal/addr"
	"github.com/grammatech/gtirb-lsp-go/internal/index"
	"github.com/grammatech/gtirb-lsp-go/internal/rewrite"
)

func fixtureIndex() *index.Index {
	block := uuid.New()
	idx := index.New()
	for l := 1; l <= 5; l++ {
		idx.Set(l, addr.Offset{Block: block, Disp: int64(l - 1)})
	}
	return idx
}

func TestApplyChangeSameSizeKeepsDomain(t *testing.T) {
	t.Parallel()
	idx := fixtureIndex()
	before := len(idx.OffsetByLine)

	tr := rewrite.NewTracker()
	tr.ApplyChange(idx, func(uuid.UUID) string { return "" }, rewrite.Change{
		StartLine: 2, EndLine: 2, Text: "replacement",
	})

	assert.Equal(t, before, len(idx.OffsetByLine))
}

func TestApplyChangeShrinkDropsInteriorAndShiftsTail(t *testing.T) {
	t.Parallel()
	idx := fixtureIndex()
	block := idx.OffsetByLine[1].Block

	tr := rewrite.NewTracker()
	// Replace lines 2..3 (2 lines) with a single line: shrink by 1.
	tr.ApplyChange(idx, func(uuid.UUID) string { return "" }, rewrite.Change{
		StartLine: 2, EndLine: 3, Text: "one line",
	})

	_, hasLine2 := idx.OffsetByLine[2]
	assert.True(t, hasLine2, "kept boundary line should survive")
	// Old line 3 (disp 2) is the interior line; its offset is gone.
	_, hasOldLine3 := idx.LineByOffset[addr.Offset{Block: block, Disp: 2}]
	assert.False(t, hasOldLine3, "interior line of shrink should be dropped")

	// Old line 4/5 shift down by growth (-1) to 3/4.
	_, has3 := idx.OffsetByLine[3]
	_, has4 := idx.OffsetByLine[4]
	assert.True(t, has3 || has4, "tail should shift")
}

func TestApplyChangeGrowShiftsTailAndOrphansInterior(t *testing.T) {
	t.Parallel()
	idx := fixtureIndex()

	tr := rewrite.NewTracker()
	// Replace line 2 alone with 3 lines: growth +2.
	tr.ApplyChange(idx, func(uuid.UUID) string { return "" }, rewrite.Change{
		StartLine: 2, EndLine: 2, Text: "a\nb\nc",
	})

	_, has1 := idx.OffsetByLine[1]
	assert.True(t, has1, "lines before the change are untouched")

	// New lines 3 and 4 inserted by the change carry no offset.
	_, has3 := idx.OffsetByLine[3]
	_, has4 := idx.OffsetByLine[4]
	assert.False(t, has3 || has4, "new interior lines are not indexed")

	// Old line 5 (disp 4) should now live at line 5+2=7.
	off, ok := idx.OffsetByLine[7]
	require.True(t, ok)
	assert.Equal(t, int64(4), off.Disp)
}

func TestApplyChangeMarksDirtyAndSnapshotsOnce(t *testing.T) {
	t.Parallel()
	idx := fixtureIndex()
	block := idx.OffsetByLine[2].Block

	tr := rewrite.NewTracker()
	calls := 0
	blockText := func(uuid.UUID) string {
		calls++
		return "snapshot"
	}

	tr.ApplyChange(idx, blockText, rewrite.Change{StartLine: 2, EndLine: 2, Text: "x"})
	tr.ApplyChange(idx, blockText, rewrite.Change{StartLine: 1, EndLine: 1, Text: "y"})

	assert.True(t, tr.Dirty.Load(block))
	assert.Equal(t, 1, calls, "snapshot only taken the first time a block goes dirty")
}
