package index

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"

	"github.com/grammatech/gtirb-lsp-go/internal/addr"
)

// entry is one [line, [uuidHex, displacement]] element of the on-disk
// format (spec §6, "On-disk index"). It implements its own
// Marshal/UnmarshalJSON to produce that exact two-element-array shape
// instead of a named-field object.
type entry struct {
	line int
	uuid uuid.UUID
	disp int64
}

func (e entry) MarshalJSON() ([]byte, error) {
	pair := [2]any{hex.EncodeToString(e.uuid[:]), e.disp}
	return json.Marshal([2]any{e.line, pair})
}

func (e *entry) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[0], &e.line); err != nil {
		return err
	}
	var pair [2]json.RawMessage
	if err := json.Unmarshal(raw[1], &pair); err != nil {
		return err
	}
	var hexUUID string
	if err := json.Unmarshal(pair[0], &hexUUID); err != nil {
		return err
	}
	b, err := hex.DecodeString(hexUUID)
	if err != nil {
		return fmt.Errorf("index: bad uuid hex %q: %w", hexUUID, err)
	}
	id, err := uuid.FromBytes(b)
	if err != nil {
		return err
	}
	e.uuid = id
	if err := json.Unmarshal(pair[1], &e.disp); err != nil {
		return err
	}
	return nil
}

// Save persists the index as the ordered list of [line, [uuidHex, disp]]
// entries spec §6 describes, with no version header.
func (idx *Index) Save(path string) error {
	lines := make([]int, 0, len(idx.OffsetByLine))
	for l := range idx.OffsetByLine {
		lines = append(lines, l)
	}
	sort.Ints(lines)

	entries := make([]entry, 0, len(lines))
	for _, l := range lines {
		off := idx.OffsetByLine[l]
		entries = append(entries, entry{line: l, uuid: off.Block, disp: off.Disp})
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("index: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("index: writing %s: %w", path, err)
	}
	return nil
}

// Load reads a persisted index from path. Any parse failure is returned
// verbatim; callers are expected to fall back to Build on error (spec §4.3,
// §7 K3).
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("index: reading %s: %w", path, err)
	}

	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("index: parsing %s: %w", path, err)
	}

	idx := New()
	for _, e := range entries {
		idx.Set(e.line, addr.Offset{Block: e.uuid, Disp: e.disp})
	}
	return idx, nil
}

// LoadIfFresh loads the persisted index at path only if it is structurally
// valid and indexes no more lines than lineCount, the line count of the
// open listing (SPEC_FULL.md §12, "Index staleness check on reuse"). This
// is a cheap guard only: the indexed line numbers and offsets themselves
// are not checked against the listing. A stale or unreadable index is
// treated identically: the caller should rebuild.
func LoadIfFresh(path string, lineCount int) (*Index, error) {
	idx, err := Load(path)
	if err != nil {
		return nil, err
	}
	if len(idx.OffsetByLine) > lineCount {
		return nil, fmt.Errorf("index: %s is stale (indexes %d lines, listing has %d)",
			path, len(idx.OffsetByLine), lineCount)
	}
	return idx, nil
}
