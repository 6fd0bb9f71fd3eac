package rewrite

import (
	"context"

	"github.com/google/uuid"

	"github.com/grammatech/gtirb-lsp-go/internal/kind"
)

// Patch is a literal patch request: replace the entire body of Block with
// Asm, INTEL syntax on x86 (spec §4.5 step 3).
type Patch struct {
	Block uuid.UUID
	Asm   string
}

// Assembler is the pluggable backend that turns a batch of literal patches
// into committed block content. Spec §9 ("Optional rewriting capability")
// calls for detecting at construction whether the assembler stack is
// available and, if not, exposing a disabled mode that still answers
// navigation queries and rejects saves with a visible diagnostic — so
// Available() is consulted before Apply() is ever called.
type Assembler interface {
	Available() bool
	// Apply applies every patch as a single atomic batch: either every
	// block in patches is accepted, or Apply returns a *kind.Error of Kind
	// AssemblerFailure and none of them take effect (spec §4.5 step 4,
	// §5 "Failure atomicity").
	Apply(ctx context.Context, patches []Patch) (map[uuid.UUID]string, error)
}

// LiteralAssembler is the in-process assembler: it performs no real
// instruction encoding (the real assembler stack is named an external
// collaborator, spec §1) and instead treats each patch's text as already
// being the committed block body, the literal-patch strategy spec §4.5
// describes. It rejects a batch containing a patch whose Asm is empty with
// an AssemblerFailure. Rewriter.Save never hands it such a patch: Save
// skips blocks with empty assembly, with a warning, before calling Apply.
type LiteralAssembler struct{}

func NewLiteralAssembler() *LiteralAssembler { return &LiteralAssembler{} }

func (*LiteralAssembler) Available() bool { return true }

func (*LiteralAssembler) Apply(_ context.Context, patches []Patch) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(patches))
	for _, p := range patches {
		if p.Asm == "" {
			return nil, kind.New(kind.AssemblerFailure, "block %s has empty assembly", p.Block)
		}
		out[p.Block] = p.Asm
	}
	return out, nil
}

// DisabledAssembler answers Available() false and fails every Apply call;
// used when the host process has no real assembler stack wired (spec §9).
type DisabledAssembler struct{}

func (DisabledAssembler) Available() bool { return false }

func (DisabledAssembler) Apply(context.Context, []Patch) (map[uuid.UUID]string, error) {
	return nil, kind.New(kind.AssemblerFailure, "rewriting is disabled")
}

var _ Assembler = (*LiteralAssembler)(nil)
var _ Assembler = DisabledAssembler{}
