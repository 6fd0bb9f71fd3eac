package lspserver

import (
	"os"
	"strings"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/grammatech/gtirb-lsp-go/internal/nav"
)

func splitLines(text string) []string {
	if text == "" {
		return []string{""}
	}
	return strings.Split(text, "\n")
}

// applyLineChange replaces the inclusive [start, end] line range with the
// lines of text, mirroring the update_line mapping rewrite.Tracker applies
// to the index (spec §4.5) so the line buffer and the index never diverge.
func applyLineChange(lines []string, start, end int, text string) []string {
	if start < 0 {
		start = 0
	}
	if end >= len(lines) {
		end = len(lines) - 1
	}
	if end < start-1 {
		end = start - 1
	}

	replacement := strings.Split(text, "\n")
	out := make([]string, 0, len(lines)-(end-start+1)+len(replacement))
	out = append(out, lines[:start]...)
	out = append(out, replacement...)
	if end+1 <= len(lines) {
		out = append(out, lines[end+1:]...)
	}
	return out
}

func protocolURI(uri string) protocol.DocumentURI { return protocol.DocumentURI(uri) }

func writeFileImpl(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

// toProtocolLocation renders a Navigation Engine Location as a protocol
// Location on the given document, translating the Engine's char-offset
// range into LSP's zero-based line/character Position pair.
func toProtocolLocation(uri protocol.DocumentURI, lines []string, loc nav.Location) protocol.Location {
	return protocol.Location{
		URI: uri,
		Range: protocol.Range{
			Start: protocol.Position{Line: uint32(loc.Line), Character: uint32(loc.StartChar)},
			End:   protocol.Position{Line: uint32(loc.Line), Character: uint32(loc.EndChar)},
		},
	}
}
