// Package bir models the binary intermediate representation (BIR, GTIRB's
// Protocol Buffers graph of modules/blocks/symbols/CFG/aux-data) and
// provides the read-only "BIR View" queries (C1 in spec §4.1).
//
// BIR decoding is named an external collaborator by spec §1 ("BIR protobuf
// decoding/encoding ... treated as libraries whose interfaces are named
// here"); codec.go still does real wire-format work, the way hyperpb
// itself parses Protobuf wire bytes directly rather than through generated
// code, but the message layout below is this repository's own minimal
// schema rather than a transliteration of GTIRB's full .proto.
package bir

import "github.com/google/uuid"

// ISA is the instruction set architecture of a module (spec §3).
type ISA int

const (
	ISAUndefined ISA = iota
	ISAX86
	ISAX64
	ISAARM
	ISAARM64
	ISAMIPS32
	ISAMIPS64
	ISAPPC32
	ISAPPC64
)

func (i ISA) String() string {
	switch i {
	case ISAX86:
		return "x86"
	case ISAX64:
		return "x64"
	case ISAARM:
		return "arm"
	case ISAARM64:
		return "arm64"
	case ISAMIPS32:
		return "mips32"
	case ISAMIPS64:
		return "mips64"
	case ISAPPC32:
		return "ppc32"
	case ISAPPC64:
		return "ppc64"
	default:
		return "undefined"
	}
}

// BlockKind distinguishes the three referent kinds spec §3/§9 calls out:
// "a tagged variant with an explicit ProxyBlock case distinguished in
// every navigation path".
type BlockKind int

const (
	CodeBlock BlockKind = iota
	DataBlock
	// ProxyBlock is the sentinel meaning "no body": a symbol can refer to
	// one when its definition lives in another module/library. Navigation
	// treats it as "no address, no definition" (spec §9).
	ProxyBlock
)

func (k BlockKind) String() string {
	switch k {
	case CodeBlock:
		return "code"
	case DataBlock:
		return "data"
	case ProxyBlock:
		return "proxy"
	default:
		return "unknown"
	}
}

// Block is a contiguous byte range, identified by UUID (spec GLOSSARY
// "Block"). ProxyBlock instances carry a zero Address/Size: they have no
// bytes.
type Block struct {
	UUID    uuid.UUID
	Kind    BlockKind
	Address uint64
	Size    uint64

	// References holds the UUIDs of symbols whose Referent is this block.
	// Populated by (*Module).Reindex() after decode; used directly by the
	// References algorithm (spec §4.4 step 3: "block_offset.element_id.references").
	References []uuid.UUID

	// Text is the block's last-committed assembly, set by a literal patch
	// during did_save (spec §4.5 step 3). Empty until the block's first
	// successful rewrite.
	Text string
}

// Contains reports whether addr falls inside this block ([address, address+size)).
func (b *Block) Contains(address uint64) bool {
	return address >= b.Address && address < b.Address+b.Size
}

// Symbol is a named node that may refer to a Block (spec §3).
type Symbol struct {
	UUID     uuid.UUID
	Name     string
	Referent *uuid.UUID // nil if the symbol has no referent at all.
}

// SymbolicExpression is a reference from a byte in a byte interval to one
// or two symbols (GLOSSARY "Symbolic expression"). The system canonicalizes
// to a single referenced symbol, the first one (spec §9, "two-symbol
// symbolic expressions").
type SymbolicExpression struct {
	Symbols []uuid.UUID // length 1 or 2; Symbols[0] is canonical.
}

// FirstSymbol returns the canonical symbol of a (possibly two-symbol)
// expression, or the zero UUID if the expression carries no symbols.
func (s SymbolicExpression) FirstSymbol() (uuid.UUID, bool) {
	if len(s.Symbols) == 0 {
		return uuid.UUID{}, false
	}
	return s.Symbols[0], true
}

// ByteInterval is a contiguous span of bytes at a fixed address, carrying
// symbolic expressions keyed by displacement into the interval (spec §3).
type ByteInterval struct {
	UUID                uuid.UUID
	Address             uint64
	Size                uint64
	SymbolicExpressions map[uint64]SymbolicExpression // displacement -> expr
}

// CFGEdgeLabel carries the edge metadata the original gtirb_lsp_server's
// indexer.py exposes alongside source/target (supplemented feature, see
// SPEC_FULL.md §12 "CFG edge label passthrough").
type CFGEdgeLabel struct {
	Type        string
	Conditional bool
	Direct      bool
}

// CFGEdge is one (source, target) edge over block UUIDs (spec §3).
type CFGEdge struct {
	Source uuid.UUID
	Target uuid.UUID
	Label  CFGEdgeLabel
}

// Type is a minimal entry of the typeTable aux-data table (spec §3),
// carrying just enough structure to render a C prototype string for hover
// (spec §4.4 Hover step c).
type Type struct {
	ID    uint64
	Ctype string // pre-rendered C type spelling, e.g. "int", "char *"
}

// Function groups the per-function aux-data spec §3 lists: functionNames,
// functionBlocks, functionSources, prototypeTable.
type Function struct {
	UUID      uuid.UUID
	Symbol    uuid.UUID   // functionNames[uuid] -> Symbol
	Blocks    []uuid.UUID // functionBlocks[uuid] -> set<CodeBlock>
	Sources   map[string]string // functionSources[uuid] -> map<source, text>
	Prototype uint64            // prototypeTable[uuid] -> typeId (0 = absent)
}

// Module is the single module this server ever addresses ("module[0]",
// spec §9). Aux-data tables keyed by Offset (e.g. "comments") are kept
// separately in OffsetAuxTables since their key type differs from the
// function-keyed tables above.
type Module struct {
	UUID          uuid.UUID
	Name          string
	ISA           ISA
	Symbols       []*Symbol
	ByteIntervals []*ByteInterval
	Blocks        map[uuid.UUID]*Block // every code/data/proxy block, flattened
	CFG           []CFGEdge

	Functions map[uuid.UUID]*Function // function uuid -> Function
	TypeTable map[uint64]*Type

	// OffsetAuxTables holds every table whose keys are Offset(block,disp),
	// e.g. "comments". Each inner map's value is the table's raw textual
	// rendering for that offset, already formatted so offset_to_aux_text
	// only needs to prefix "{name}: " (spec §4.1).
	OffsetAuxTables map[string]map[OffsetKey]string
}

// OffsetKey is a hashable (block, displacement) pair used as a map key for
// OffsetAuxTables. It has the same shape as addr.Offset; package bir keeps
// its own copy and does not import package addr.
type OffsetKey struct {
	Block uuid.UUID
	Disp  int64
}

// NewModule builds an empty Module with its maps initialized.
func NewModule() *Module {
	return &Module{
		Blocks:          map[uuid.UUID]*Block{},
		Functions:       map[uuid.UUID]*Function{},
		TypeTable:       map[uint64]*Type{},
		OffsetAuxTables: map[string]map[OffsetKey]string{},
	}
}

// Reindex populates derived fields (Block.References) after a Module's
// Symbols/Blocks have been filled in, whether by decode or by a test
// fixture built by hand. Decode calls this automatically; callers building
// a Module programmatically must call it themselves before using a View.
func (m *Module) Reindex() {
	for _, b := range m.Blocks {
		b.References = b.References[:0]
	}
	for _, s := range m.Symbols {
		if s.Referent == nil {
			continue
		}
		if b, ok := m.Blocks[*s.Referent]; ok {
			b.References = append(b.References, s.UUID)
		}
	}
}
