// Package index implements the Index (C3, spec §4.3): the bidirectional
// line <-> Offset mapping, its JSON persistence, and the tolerant reverse
// lookup References relies on.
package index

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/grammatech/gtirb-lsp-go/internal/addr"
	"github.com/grammatech/gtirb-lsp-go/internal/bir"
	"github.com/grammatech/gtirb-lsp-go/internal/kind"
	"github.com/grammatech/gtirb-lsp-go/internal/listing"
)

// DisplacementInterval bounds the tolerant reverse lookup from Offset to
// line (spec §4.3, GLOSSARY).
const DisplacementInterval = 5

// Index holds the two maps of spec §3; Invariant I1 (offset_by_line and
// line_by_offset agree) is maintained by construction — every mutation goes
// through Set/Remove so the two maps never diverge.
type Index struct {
	OffsetByLine map[int]addr.Offset
	LineByOffset map[addr.Offset]int
}

// New returns an empty Index.
func New() *Index {
	return &Index{
		OffsetByLine: map[int]addr.Offset{},
		LineByOffset: map[addr.Offset]int{},
	}
}

// Set inserts or overwrites the (line, Offset) pair in both maps, keeping
// I1 intact. Exported so callers rebuilding the index incrementally (e.g.
// the rewrite package's did_change handling) don't have to reach past the
// invariant-preserving wrapper.
func (idx *Index) Set(line int, off addr.Offset) {
	idx.OffsetByLine[line] = off
	idx.LineByOffset[off] = line
}

// Remove deletes a line from both maps, keeping I1 intact.
func (idx *Index) Remove(line int) {
	if off, ok := idx.OffsetByLine[line]; ok {
		delete(idx.LineByOffset, off)
		delete(idx.OffsetByLine, line)
	}
}

// Build joins the listing's (addr, line) pairs with the BIR's dense
// addr -> Offset map (spec §4.3): "iterate every block, for every byte in
// the block insert (block.address + i) -> (block.uuid, i)". Returns a
// kind.BIRLoadFailure error if two blocks claim the same address, since
// that makes the bijection required by I1/I4 impossible to construct
// (SPEC_FULL.md §13, open question 3).
func Build(view *bir.View, addrLines []listing.AddrLine) (*Index, error) {
	dense := make(map[uint64]addr.Offset)
	for _, b := range view.Module.Blocks {
		if b.Kind == bir.ProxyBlock {
			continue
		}
		for i := uint64(0); i < b.Size; i++ {
			a := b.Address + i
			if _, exists := dense[a]; exists {
				return nil, kind.New(kind.BIRLoadFailure,
					"address %#x is covered by more than one block", a)
			}
			dense[a] = addr.Offset{Block: b.UUID, Disp: int64(i)}
		}
	}

	idx := New()
	for _, al := range addrLines {
		off, ok := dense[al.Addr]
		if !ok {
			// Spec I3: only lines whose address falls inside some block
			// are indexed; others (e.g. data referenced only by name) are
			// silently skipped.
			continue
		}
		idx.Set(al.Line, off)
	}
	return idx, nil
}

// OffsetToLine performs the tolerant reverse lookup of spec §4.3: an exact
// match first, then a walk of up to DisplacementInterval bytes downward,
// to accommodate symbolic-expression addresses that point into the
// interior of an instruction rather than at its byte 0.
func (idx *Index) OffsetToLine(off addr.Offset) (int, bool) {
	if l, ok := idx.LineByOffset[off]; ok {
		return l, true
	}
	for step := int64(1); step <= DisplacementInterval; step++ {
		cand := addr.Offset{Block: off.Block, Disp: off.Disp - step}
		if l, ok := idx.LineByOffset[cand]; ok {
			return l, true
		}
	}
	return 0, false
}

// FirstLineForUUID returns the minimum line over all offsets whose block
// UUID equals the given block (spec §4.3).
func (idx *Index) FirstLineForUUID(block uuid.UUID) (int, bool) {
	first := 0
	found := false
	for off, line := range idx.LineByOffset {
		if off.Block != block {
			continue
		}
		if !found || line < first {
			first = line
			found = true
		}
	}
	return first, found
}

// BlockLines returns the ordered list of lines touching any offset of the
// given block (spec §4.3).
func (idx *Index) BlockLines(block uuid.UUID) []int {
	var lines []int
	for off, line := range idx.LineByOffset {
		if off.Block == block {
			lines = append(lines, line)
		}
	}
	sort.Ints(lines)
	return lines
}

// BlockText joins BlockLines, stripping each line at the first '#' and
// trimming trailing whitespace, separated by a single '\n' (spec §4.3).
func BlockText(lines []int, listingLines []string) string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l < 0 || l >= len(listingLines) {
			continue
		}
		text := listingLines[l]
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		out = append(out, strings.TrimRight(text, " \t\r"))
	}
	return strings.Join(out, "\n")
}
