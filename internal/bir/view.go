package bir

import (
	"sort"

	"github.com/google/uuid"
)

// View is the stateless read-only facade over a decoded Module (spec
// §4.1). It is cheap to construct (it holds no state of its own beyond a
// pointer to the Module) and safe to share across goroutines as long as
// the underlying Module is not concurrently mutated — which only happens
// during (*rewrite.Rewriter).Save, itself serialized per-document by spec
// §5.
type View struct {
	Module *Module
}

func NewView(m *Module) *View { return &View{Module: m} }

// SymbolByName returns the first symbol with the given name (spec §4.1).
func (v *View) SymbolByName(name string) (*Symbol, bool) {
	for _, s := range v.Module.Symbols {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// ByteBlocksOn returns every block covering address (spec §4.1).
func (v *View) ByteBlocksOn(address uint64) []*Block {
	var out []*Block
	for _, b := range v.Module.Blocks {
		if b.Kind == ProxyBlock {
			continue
		}
		if b.Contains(address) {
			out = append(out, b)
		}
	}
	return out
}

// Node is anything GetByUUID can return: *Block or *Symbol.
type Node any

// GetByUUID resolves a UUID against blocks first, then symbols.
func (v *View) GetByUUID(id uuid.UUID) (Node, bool) {
	if b, ok := v.Module.Blocks[id]; ok {
		return b, true
	}
	for _, s := range v.Module.Symbols {
		if s.UUID == id {
			return s, true
		}
	}
	return nil, false
}

// InEdges returns every CFG edge whose target is block.
func (v *View) InEdges(block uuid.UUID) []CFGEdge {
	var out []CFGEdge
	for _, e := range v.Module.CFG {
		if e.Target == block {
			out = append(out, e)
		}
	}
	return out
}

// OutEdges returns every CFG edge whose source is block.
func (v *View) OutEdges(block uuid.UUID) []CFGEdge {
	var out []CFGEdge
	for _, e := range v.Module.CFG {
		if e.Source == block {
			out = append(out, e)
		}
	}
	return out
}

// SymbolicRef pairs the absolute address of a symbolic expression with its
// canonical (first) referenced symbol, the unit all_symbolic_expressions
// enumerates (spec §4.1).
type SymbolicRef struct {
	Address uint64
	Symbol  uuid.UUID
}

// AllSymbolicExpressions enumerates every symbolic expression in the
// module, the canonical cross-reference source for References (spec §4.1,
// §4.4).
func (v *View) AllSymbolicExpressions() []SymbolicRef {
	var out []SymbolicRef
	for _, bi := range v.Module.ByteIntervals {
		for disp, se := range bi.SymbolicExpressions {
			sym, ok := se.FirstSymbol()
			if !ok {
				continue
			}
			out = append(out, SymbolicRef{
				Address: bi.Address + disp,
				Symbol:  sym,
			})
		}
	}
	return out
}

// OffsetIndexedAuxDataNames returns the names of every Offset-keyed
// aux-data table (spec §4.1).
func (v *View) OffsetIndexedAuxDataNames() []string {
	names := make([]string, 0, len(v.Module.OffsetAuxTables))
	for name := range v.Module.OffsetAuxTables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OffsetToAuxText concatenates "{name}: {value}\n" over every
// offset-indexed aux table with an entry at (block, disp); an empty result
// becomes absent (spec §4.1).
func (v *View) OffsetToAuxText(block uuid.UUID, disp int64) (string, bool) {
	key := OffsetKey{Block: block, Disp: disp}
	var text string
	for _, name := range v.OffsetIndexedAuxDataNames() {
		if val, ok := v.Module.OffsetAuxTables[name][key]; ok {
			text += name + ": " + val + "\n"
		}
	}
	if text == "" {
		return "", false
	}
	return text, true
}
