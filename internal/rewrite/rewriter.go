package rewrite

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/grammatech/gtirb-lsp-go/internal/bir"
	"github.com/grammatech/gtirb-lsp-go/internal/index"
	"github.com/grammatech/gtirb-lsp-go/internal/kind"
)

// Rewriter drives did_save (spec §4.5): it reassembles each dirty block
// and commits the patches to the in-memory BIR. It does not write the BIR
// out; the caller encodes and persists (or pushes) it. It holds no
// session-keyed state of its own; Tracker (dirty set + snapshots) is
// passed in so a Rewriter can be shared across sessions while each
// session's Tracker stays private.
type Rewriter struct {
	Assembler Assembler
	Log       *slog.Logger
}

func NewRewriter(asm Assembler, log *slog.Logger) *Rewriter {
	return &Rewriter{Assembler: asm, Log: log}
}

// Save runs the full did_save pipeline against module/idx/lines using
// t's dirty set. On success it returns the set of blocks committed and
// clears t.Dirty; on any failure it returns the error and leaves t.Dirty
// untouched, so the next save attempt retries the same blocks (spec §4.5
// step 4, §8 "After did_save fails, dirty_blocks is preserved").
func (r *Rewriter) Save(ctx context.Context, t *Tracker, view *bir.View, idx *index.Index, lines []string) ([]uuid.UUID, error) {
	dirty := t.DirtyBlocks()
	if len(dirty) == 0 {
		return nil, nil
	}

	if !r.Assembler.Available() {
		r.Log.Warn("rewriting is disabled; dirty blocks retained", "count", len(dirty))
		return nil, ErrRewritingDisabled
	}

	// Step 1: blocks_to_functions, enumerated for logging/diagnostics only
	// — the patch construction below keys directly off block UUID, which
	// is sufficient since a block belongs to at most one function.
	blockToFunction := make(map[uuid.UUID]uuid.UUID)
	for _, fn := range view.Module.Functions {
		for _, b := range fn.Blocks {
			blockToFunction[b] = fn.UUID
		}
	}

	patches := make([]Patch, 0, len(dirty))
	for _, blockID := range dirty {
		blockLines := idx.BlockLines(blockID)
		asm := index.BlockText(blockLines, lines)
		if asm == "" {
			// Step 2: block deletion is unsupported; skip and warn, but do
			// not fail the whole batch over it.
			r.Log.Warn("dirty block has empty assembly, skipping", "block", blockID)
			continue
		}
		patches = append(patches, Patch{Block: blockID, Asm: asm})
		if fn, ok := blockToFunction[blockID]; ok {
			r.Log.Debug("staged patch", "block", blockID, "function", fn)
		}
	}

	if len(patches) == 0 {
		return nil, nil
	}

	committed, err := r.Assembler.Apply(ctx, patches)
	if err != nil {
		// Step 4: assembler failure surfaces verbatim, dirty set retained.
		return nil, err
	}

	// Step 5: apply atomically to the in-memory BIR now that the whole
	// batch succeeded.
	var ids []uuid.UUID
	for blockID, text := range committed {
		if b, ok := view.Module.Blocks[blockID]; ok {
			b.Text = text
		}
		ids = append(ids, blockID)
	}

	t.Dirty.Clear()
	for _, blockID := range ids {
		t.Snapshots.Delete(blockID)
	}

	return ids, nil
}

// ErrRewritingDisabled is returned by Save when no assembler backend is
// wired (spec §9, §8 scenario 6: "with rewriting disabled, posts
// 'rewriting is disabled' and leaves dirty set populated").
var ErrRewritingDisabled = kind.New(kind.AssemblerFailure, "rewriting is disabled")
