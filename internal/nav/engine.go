// Package nav implements the Navigation Engine (C4, spec §4.4): resolving
// definition, references, and hover contents from a (cursor line,
// character) position using the BIR View (C1), the Listing Parser (C2),
// and the Index (C3).
package nav

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/grammatech/gtirb-lsp-go/internal/addr"
	"github.com/grammatech/gtirb-lsp-go/internal/bir"
	"github.com/grammatech/gtirb-lsp-go/internal/index"
	"github.com/grammatech/gtirb-lsp-go/internal/kind"
	"github.com/grammatech/gtirb-lsp-go/internal/listing"
)

// Location spans a range of characters on one listing line, the unit both
// Definition and References return (spec §4.4).
type Location struct {
	Line       int
	StartChar  int
	EndChar    int // exclusive
}

// Engine bundles the three read-only sources Navigation consults. It holds
// no state of its own; one Engine can be reused across requests for the
// same open document as long as View/Index/Lines are refreshed when the
// document changes.
type Engine struct {
	View  *bir.View
	Index *index.Index
	Lines []string
}

func New(view *bir.View, idx *index.Index, lines []string) *Engine {
	return &Engine{View: view, Index: idx, Lines: lines}
}

func (e *Engine) lineText(line int) (string, bool) {
	if line < 0 || line >= len(e.Lines) {
		return "", false
	}
	return e.Lines[line], true
}

// tokenRange finds token within lineText as a whole-line fallback range;
// Definition/References spec text: "whose range spans token within
// lines[target], or the full line if the token is not found there".
func tokenRange(lineText, token string) Location0 {
	if token != "" {
		if i := strings.Index(lineText, token); i >= 0 {
			return Location0{Start: i, End: i + len(token)}
		}
	}
	return Location0{Start: 0, End: len(lineText)}
}

// Location0 is the (start,end) character pair tokenRange resolves before
// it is paired with a line number into a Location.
type Location0 struct {
	Start, End int
}

// Definition resolves go-to-definition (spec §4.4).
func (e *Engine) Definition(line, char int) (Location, error) {
	text, ok := e.lineText(line)
	if !ok {
		return Location{}, kind.New(kind.TokenResolution, "line %d out of range", line)
	}

	token := listing.TokenizeAt(text, char)
	if token == "" {
		return Location{}, kind.New(kind.TokenResolution, "no token at %d:%d", line, char)
	}

	sym, ok := e.View.SymbolByName(token)
	if !ok || sym.Referent == nil {
		return Location{}, kind.New(kind.TokenResolution, "%q is not defined", token)
	}

	node, ok := e.View.GetByUUID(*sym.Referent)
	if !ok {
		return Location{}, kind.New(kind.TokenResolution, "%q is not defined", token)
	}
	block, ok := node.(*bir.Block)
	if !ok || block.Kind == bir.ProxyBlock {
		return Location{}, kind.New(kind.TokenResolution, "%q is not defined", token)
	}

	target, ok := e.Index.FirstLineForUUID(block.UUID)
	if !ok {
		return Location{}, kind.New(kind.TokenResolution, "no definition for %q", token)
	}

	if snapped, ok := listing.PrecedingFunctionLine(e.Lines, token, target); ok {
		target = snapped
	}

	targetText, _ := e.lineText(target)
	r := tokenRange(targetText, token)
	return Location{Line: target, StartChar: r.Start, EndChar: r.End}, nil
}

// References resolves find-references (spec §4.4).
func (e *Engine) References(line, char int) ([]Location, error) {
	text, ok := e.lineText(line)
	if !ok {
		return nil, kind.New(kind.TokenResolution, "line %d out of range", line)
	}
	token := listing.TokenizeAt(text, char)

	referenceLine := line
	if token != "" {
		if sym, ok := e.View.SymbolByName(token); ok && sym.Referent != nil {
			if node, ok := e.View.GetByUUID(*sym.Referent); ok {
				if block, ok := node.(*bir.Block); ok && block.Kind != bir.ProxyBlock {
					if l, ok := e.Index.FirstLineForUUID(block.UUID); ok {
						referenceLine = l
					}
				}
			}
		}
	}

	blockOffset, ok := e.Index.OffsetByLine[referenceLine]
	if !ok {
		return nil, kind.New(kind.TokenResolution, "line %d has no offset", referenceLine)
	}

	block, ok := e.View.Module.Blocks[blockOffset.Block]
	if !ok {
		return nil, kind.New(kind.TokenResolution, "block for line %d not found", referenceLine)
	}

	refSymbols := make(map[uuid.UUID]struct{}, len(block.References))
	for _, s := range block.References {
		refSymbols[s] = struct{}{}
	}

	var locs []Location
	for _, ref := range e.View.AllSymbolicExpressions() {
		if _, ok := refSymbols[ref.Symbol]; !ok {
			continue
		}
		for _, b := range e.View.ByteBlocksOn(ref.Address) {
			// The "-1" bias is intentional (spec §9 open question 1): it
			// biases into the instruction byte preceding the operand
			// fixup.
			disp := int64(ref.Address-b.Address) - 1
			target := addr.Offset{Block: b.UUID, Disp: disp}
			tline, ok := e.Index.OffsetToLine(target)
			if !ok {
				continue
			}

			name := ""
			if node, ok := e.View.GetByUUID(ref.Symbol); ok {
				if sym, ok := node.(*bir.Symbol); ok {
					name = sym.Name
				}
			}
			ttext, _ := e.lineText(tline)
			r := tokenRange(ttext, name)
			locs = append(locs, Location{Line: tline, StartChar: r.Start, EndChar: r.End})
		}
	}
	return locs, nil
}

// Hover resolves hover contents (spec §4.4).
func (e *Engine) Hover(line, char int) (string, error) {
	text, ok := e.lineText(line)
	if !ok {
		return "", kind.New(kind.TokenResolution, "line %d out of range", line)
	}

	// a) offset_by_line -> offset_to_aux_text.
	if off, ok := e.Index.OffsetByLine[line]; ok {
		if auxText, ok := e.View.OffsetToAuxText(off.Block, off.Disp); ok {
			return auxText, nil
		}
	}

	// b) parse_function_name -> functionSources.
	if name, ok := listing.ParseFunctionName(text); ok {
		if fn, ok := e.functionByName(name); ok && len(fn.Sources) > 0 {
			return renderSources(fn.Sources), nil
		}
	}

	// c) token stripped of trailing "@PLT" -> prototypeTable -> typeTable.
	token := strings.TrimSuffix(listing.TokenizeAt(text, char), "@PLT")
	if token != "" {
		if fn, ok := e.functionByName(token); ok && fn.Prototype != 0 {
			if t, ok := e.View.Module.TypeTable[fn.Prototype]; ok {
				return t.Ctype, nil
			}
		}
	}

	// d) fallback.
	return "No auxdata found", nil
}

func (e *Engine) functionByName(name string) (*bir.Function, bool) {
	for _, fn := range e.View.Module.Functions {
		node, ok := e.View.GetByUUID(fn.Symbol)
		if !ok {
			continue
		}
		sym, ok := node.(*bir.Symbol)
		if ok && sym.Name == name {
			return fn, true
		}
	}
	return nil, false
}

func renderSources(sources map[string]string) string {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "### %s\n```c\n%s\n```", name, sources[name])
	}
	return b.String()
}
