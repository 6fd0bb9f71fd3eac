package session

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/grammatech/gtirb-lsp-go/internal/addr"
	"github.com/grammatech/gtirb-lsp-go/internal/bir"
	"github.com/grammatech/gtirb-lsp-go/internal/kind"
	"github.com/grammatech/gtirb-lsp-go/internal/listing"
	"github.com/grammatech/gtirb-lsp-go/internal/nav"
)

// GetLineFromAddress translates an address to a listing line (spec §4.6).
func GetLineFromAddress(s *Session, hexAddr string) (nav.Location, error) {
	address, err := strconv.ParseUint(hexAddr, 0, 64)
	if err != nil {
		return nav.Location{}, kind.New(kind.PathMalformed, "invalid address %q: %v", hexAddr, err)
	}

	view := s.View()
	blocks := view.ByteBlocksOn(address)
	if len(blocks) == 0 {
		return nav.Location{}, kind.New(kind.AddressOutOfRange, "no block covers address %#x", address)
	}
	b := blocks[0]

	off := addr.Offset{Block: b.UUID, Disp: int64(address - b.Address)}
	line, ok := s.Index().OffsetToLine(off)
	if !ok {
		return nav.Location{}, kind.New(kind.AddressOutOfRange, "address %#x has no indexed line", address)
	}

	lines := s.Lines()
	end := 0
	if line < len(lines) {
		end = len(lines[line])
	}
	return nav.Location{Line: line, StartChar: 0, EndChar: end}, nil
}

// GetAddressOfSymbol resolves a symbol name to its defining address (spec
// §4.6): absent if the symbol is unknown, has no referent, or the referent
// is a ProxyBlock.
func GetAddressOfSymbol(s *Session, name string) (string, bool) {
	view := s.View()
	sym, ok := view.SymbolByName(name)
	if !ok || sym.Referent == nil {
		return "", false
	}
	node, ok := view.GetByUUID(*sym.Referent)
	if !ok {
		return "", false
	}
	block, ok := node.(*bir.Block)
	if !ok || block.Kind == bir.ProxyBlock {
		return "", false
	}
	return fmt.Sprintf("0x%x", block.Address), true
}

// LineAddress is one entry of getLineAddressList's result.
type LineAddress struct {
	Line    int
	Address uint64
}

// GetLineAddressList enumerates every indexed (line, address) pair (spec
// §4.6), sorted by line.
func GetLineAddressList(s *Session) []LineAddress {
	idx := s.Index()
	view := s.View()

	out := make([]LineAddress, 0, len(idx.OffsetByLine))
	for line, off := range idx.OffsetByLine {
		b, ok := view.Module.Blocks[off.Block]
		if !ok {
			continue
		}
		out = append(out, LineAddress{Line: line, Address: b.Address + uint64(off.Disp)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

// GetFunctionLocations returns one Location per functionNames entry,
// anchored to the function's label line when present (spec §4.6).
func GetFunctionLocations(s *Session) []nav.Location {
	view := s.View()
	idx := s.Index()
	lines := s.Lines()

	var out []nav.Location
	for _, fn := range view.Module.Functions {
		node, ok := view.GetByUUID(fn.Symbol)
		if !ok {
			continue
		}
		sym, ok := node.(*bir.Symbol)
		if !ok || sym.Referent == nil {
			continue
		}
		block, ok := view.GetByUUID(*sym.Referent)
		if !ok {
			continue
		}
		b, ok := block.(*bir.Block)
		if !ok {
			continue
		}

		target, ok := idx.FirstLineForUUID(b.UUID)
		if !ok {
			continue
		}
		if snapped, ok := listing.PrecedingFunctionLine(lines, sym.Name, target); ok {
			target = snapped
		}

		end := 0
		if target < len(lines) {
			end = len(lines[target])
		}
		out = append(out, nav.Location{Line: target, StartChar: 0, EndChar: end})
	}
	return out
}

// GetModuleName returns the module's name, or "module{idx}" if it has
// none set (spec §4.6).
func GetModuleName(s *Session, idx int) string {
	view := s.View()
	if view.Module.Name != "" {
		return view.Module.Name
	}
	return fmt.Sprintf("module%d", idx)
}
