package lspserver

import (
	"context"
	"encoding/json"
	"fmt"

	"go.lsp.dev/protocol"

	"github.com/grammatech/gtirb-lsp-go/internal/kind"
	"github.com/grammatech/gtirb-lsp-go/internal/session"
)

// commandArgs decodes workspace/executeCommand's Arguments[0], the single
// object every custom command in spec §4.6 takes.
func commandArgs(raw []json.RawMessage, out any) error {
	if len(raw) == 0 {
		return kind.New(kind.PathMalformed, "command requires arguments")
	}
	return json.Unmarshal(raw[0], out)
}

func (a *Adapter) dispatchCommand(ctx context.Context, command string, raw []json.RawMessage) (any, error) {
	switch command {
	case "getLineFromAddress":
		var args struct {
			URI string `json:"uri"`
			Hex string `json:"hexAddr"`
		}
		if err := commandArgs(raw, &args); err != nil {
			return nil, err
		}
		sess, ok := a.Registry.Get(args.URI)
		if !ok {
			return nil, kind.New(kind.NotCached, "no session for %s", args.URI)
		}
		loc, err := session.GetLineFromAddress(sess, args.Hex)
		if err != nil {
			return nil, err
		}
		return toProtocolLocation(protocolURI(args.URI), sess.Lines(), loc).Range, nil

	case "getAddressOfSymbol":
		var args struct {
			URI  string `json:"uri"`
			Name string `json:"name"`
		}
		if err := commandArgs(raw, &args); err != nil {
			return nil, err
		}
		sess, ok := a.Registry.Get(args.URI)
		if !ok {
			return nil, kind.New(kind.NotCached, "no session for %s", args.URI)
		}
		addr, ok := session.GetAddressOfSymbol(sess, args.Name)
		if !ok {
			// Absent referent/unknown symbol: not an error, but spec §4.6 /
			// §8 scenario 5 still wants a diagnostic posted to the user.
			a.showMessage(ctx, protocol.MessageTypeWarning, fmt.Sprintf("no symbol named %q", args.Name))
			return nil, nil
		}
		return addr, nil

	case "getLineAddressList":
		var args struct {
			URI string `json:"uri"`
		}
		if err := commandArgs(raw, &args); err != nil {
			return nil, err
		}
		sess, ok := a.Registry.Get(args.URI)
		if !ok {
			return nil, kind.New(kind.NotCached, "no session for %s", args.URI)
		}
		list := session.GetLineAddressList(sess)
		out := make([][2]any, 0, len(list))
		for _, la := range list {
			out = append(out, [2]any{la.Line, la.Address})
		}
		return out, nil

	case "getFunctionLocations":
		var args struct {
			URI string `json:"uri"`
		}
		if err := commandArgs(raw, &args); err != nil {
			return nil, err
		}
		sess, ok := a.Registry.Get(args.URI)
		if !ok {
			return nil, kind.New(kind.NotCached, "no session for %s", args.URI)
		}
		locs := session.GetFunctionLocations(sess)
		out := make([]any, 0, len(locs))
		for _, l := range locs {
			out = append(out, toProtocolLocation(protocolURI(args.URI), sess.Lines(), l))
		}
		return out, nil

	case "getModuleName":
		var args struct {
			URI   string `json:"uri"`
			Index int    `json:"idx"`
		}
		if err := commandArgs(raw, &args); err != nil {
			return nil, err
		}
		sess, ok := a.Registry.Get(args.URI)
		if !ok {
			return nil, kind.New(kind.NotCached, "no session for %s", args.URI)
		}
		return session.GetModuleName(sess, args.Index), nil

	default:
		return nil, fmt.Errorf("lspserver: unknown command %q", command)
	}
}
