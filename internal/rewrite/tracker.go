// Package rewrite implements the Edit Tracker & Rewriter (C5, spec §4.5):
// mutating the Index in place as the editor reports incremental text
// changes, tracking which blocks have pending edits, and turning those
// edits into a batch of assembled patches committed to the BIR on save.
package rewrite

import (
	"strings"

	"github.com/google/uuid"

	"github.com/grammatech/gtirb-lsp-go/internal/index"
	"github.com/grammatech/gtirb-lsp-go/internal/xsync"
)

// Change is one content change from a textDocument/didChange notification,
// already translated into listing-space line coordinates.
type Change struct {
	StartLine int // inclusive
	EndLine   int // inclusive
	Text      string
}

func lineCount(text string) int {
	if text == "" {
		return 1
	}
	return strings.Count(text, "\n") + 1
}

// Tracker owns the dirty-block set and per-block snapshots for one open
// document (spec §3, "Session state"). It does not own the line buffer
// itself or the Index — both are supplied by the caller on each call so
// Tracker stays a pure function of (index, lines) plus its own small piece
// of mutable state (dirty/snapshots), matching spec §5's rule that a
// session's mutable pieces are owned exclusively and not interleaved with
// transport concerns.
type Tracker struct {
	Dirty     xsync.Set[uuid.UUID]
	Snapshots xsync.Map[uuid.UUID, string]
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// ApplyChange folds one did_change content change into idx, the
// line<->Offset bijection, following the update_line mapping of spec
// §4.5:
//
//	update_line(l) = l                    if l < start + min(new_count, old_count)
//	               = l + growth           if l > end
//	               = absent                otherwise
//
// Before mutating, every line in [start, end] is resolved to its owning
// block (if indexed) and that block is marked dirty; the first time a
// block becomes dirty in this Tracker's lifetime, its currently-assembled
// text is snapshotted via blockText for audit (spec §4.5: "snapshot its
// current assembled text for auditing").
func (t *Tracker) ApplyChange(idx *index.Index, blockText func(block uuid.UUID) string, change Change) {
	start, end := change.StartLine, change.EndLine
	oldCount := end + 1 - start
	newCount := lineCount(change.Text)
	growth := newCount - oldCount

	for l := start; l <= end; l++ {
		off, ok := idx.OffsetByLine[l]
		if !ok {
			continue
		}
		t.markDirty(off.Block, blockText)
	}

	keepBoundary := start + minInt(newCount, oldCount)

	rebuilt := index.New()
	for l, off := range idx.OffsetByLine {
		switch {
		case l < keepBoundary:
			rebuilt.Set(l, off)
		case l > end:
			rebuilt.Set(l+growth, off)
		default:
			// Dropped: an interior line of the overlapping range (spec §9
			// open question 2 — this repository follows the
			// interior-lines-dropped variant).
		}
	}

	idx.OffsetByLine = rebuilt.OffsetByLine
	idx.LineByOffset = rebuilt.LineByOffset
}

func (t *Tracker) markDirty(block uuid.UUID, blockText func(uuid.UUID) string) {
	if t.Dirty.Load(block) {
		return
	}
	t.Dirty.Store(block)
	t.Snapshots.Store(block, blockText(block))
}

// DirtyBlocks returns the current dirty set as a slice, in no particular
// order (consumed by Save, spec §4.5 step 2).
func (t *Tracker) DirtyBlocks() []uuid.UUID {
	var out []uuid.UUID
	for b := range t.Dirty.All() {
		out = append(out, b)
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
