// Package lspserver is the LSP Adapter (spec §2, "external"): it frames
// standard and custom LSP requests to/from the editor and routes them to
// the Navigation Engine (C4), Edit Tracker & Rewriter (C5), and Session
// Manager (C6). It deliberately does not implement go.lsp.dev/protocol's
// generated Server interface — that interface is large and speculative
// method signatures compiled from memory are a real risk — and instead
// dispatches on method name directly, using the protocol package only for
// its wire-format data types (Position, Range, Location, Hover, ...),
// the way a hand-written jsonrpc2 handler would.
package lspserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/grammatech/gtirb-lsp-go/internal/bir"
	"github.com/grammatech/gtirb-lsp-go/internal/index"
	"github.com/grammatech/gtirb-lsp-go/internal/kind"
	"github.com/grammatech/gtirb-lsp-go/internal/listing"
	"github.com/grammatech/gtirb-lsp-go/internal/nav"
	"github.com/grammatech/gtirb-lsp-go/internal/rewrite"
	"github.com/grammatech/gtirb-lsp-go/internal/session"
)

// Loader resolves and loads the BIR bytes for a session, either from the
// local filesystem or, in remote mode, via the getBirFile custom request
// (spec §4.6 "Local vs remote"). Split out as an interface so tests can
// substitute an in-memory loader without a real jsonrpc2 connection.
type Loader interface {
	Load(ctx context.Context, uri string, paths session.Paths, remote bool) ([]byte, error)
	Push(ctx context.Context, uri string, data []byte) error
}

// Notifier sends a server-to-client notification. It is a thin wrapper
// around jsonrpc2.Conn.Notify so the Adapter can post window/showMessage
// and window/logMessage without depending on the whole Conn interface
// (and so tests can substitute a recording fake).
type Notifier interface {
	Notify(ctx context.Context, method string, params any) error
}

// ConnNotifier adapts a live jsonrpc2.Conn to Notifier.
type ConnNotifier struct {
	Conn jsonrpc2.Conn
}

func (n ConnNotifier) Notify(ctx context.Context, method string, params any) error {
	return n.Conn.Notify(ctx, method, params)
}

// userVisible reports whether kind k is one of the error kinds spec §7's
// propagation policy surfaces to the user via window/showMessage (K1, K4,
// K5, K6, K8), as opposed to K2/K7 (abort silently beyond leaving the URI
// unregistered) or K3 (recovered locally by rebuilding the index).
func userVisible(k kind.Kind) bool {
	switch k {
	case kind.PathMalformed, kind.NotCached, kind.TokenResolution, kind.AssemblerFailure, kind.AddressOutOfRange:
		return true
	default:
		return false
	}
}

// showMessage posts a window/showMessage notification (spec §7, "Commands
// that fail return a diagnostic via window/showMessage").
func (a *Adapter) showMessage(ctx context.Context, typ protocol.MessageType, message string) {
	if a.Notifier == nil {
		return
	}
	if err := a.Notifier.Notify(ctx, "window/showMessage", &protocol.ShowMessageParams{Type: typ, Message: message}); err != nil {
		a.Log.Warn("window/showMessage failed", "error", err)
	}
}

// logMessage posts a window/logMessage notification, the server-log half
// of the two-tier split spec §7 describes alongside window/showMessage.
func (a *Adapter) logMessage(ctx context.Context, typ protocol.MessageType, message string) {
	if a.Notifier == nil {
		return
	}
	if err := a.Notifier.Notify(ctx, "window/logMessage", &protocol.LogMessageParams{Type: typ, Message: message}); err != nil {
		a.Log.Warn("window/logMessage failed", "error", err)
	}
}

// reportError sends logMessage for every handler failure and additionally
// showMessage when err is a *kind.Error of a user-visible kind (spec §7
// propagation policy).
func (a *Adapter) reportError(ctx context.Context, err error) {
	a.logMessage(ctx, protocol.MessageTypeLog, err.Error())
	var ke *kind.Error
	if errors.As(err, &ke) && userVisible(ke.Kind) {
		a.showMessage(ctx, protocol.MessageTypeError, err.Error())
	}
}

// Adapter holds everything a method handler needs: the session registry,
// the rewriter, the BIR loader, and a logger. One Adapter serves every
// document on the connection (spec §5, "the top-level session map is the
// only structure shared across handlers").
type Adapter struct {
	Registry *session.Registry
	Rewriter *rewrite.Rewriter
	Loader   Loader
	// Remote forces every session opened through this Adapter into remote
	// mode (spec §6, "--force-remote": treat the client filesystem as
	// inaccessible even under stdio) regardless of which Loader is wired.
	Remote bool
	// Notifier posts window/showMessage and window/logMessage notifications
	// (spec §7 "User-visible failure"). Nil in tests that don't exercise
	// diagnostic delivery.
	Notifier Notifier
	Log      *slog.Logger
}

func NewAdapter(reg *session.Registry, asm rewrite.Assembler, loader Loader, remote bool, notifier Notifier, log *slog.Logger) *Adapter {
	return &Adapter{
		Registry: reg,
		Rewriter: rewrite.NewRewriter(asm, log),
		Loader:   loader,
		Remote:   remote,
		Notifier: notifier,
		Log:      log,
	}
}

// Handle implements jsonrpc2.Handler, dispatching each request by LSP
// method name (spec §6 "Standard LSP surface" + "Custom commands").
func (a *Adapter) Handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	switch req.Method() {
	case "textDocument/didOpen":
		return a.notify(ctx, reply, req, a.didOpen)
	case "textDocument/didChange":
		return a.notify(ctx, reply, req, a.didChange)
	case "textDocument/didSave":
		return a.notify(ctx, reply, req, a.didSave)
	case "textDocument/didClose":
		return a.notify(ctx, reply, req, a.didClose)
	case "textDocument/definition":
		return a.call(ctx, reply, req, a.definition)
	case "textDocument/references":
		return a.call(ctx, reply, req, a.references)
	case "textDocument/hover":
		return a.call(ctx, reply, req, a.hover)
	case "workspace/executeCommand":
		return a.call(ctx, reply, req, a.executeCommand)
	default:
		return reply(ctx, nil, fmt.Errorf("lspserver: unhandled method %q", req.Method()))
	}
}

// notify handles a textDocument/didOpen|didChange|didSave|didClose event.
// These arrive as LSP notifications with no client-visible reply, so a
// failure's only way back to the user is window/showMessage/logMessage
// (spec §7) — the reply, when one exists at all, carries the error too,
// but nothing upstream of a true notification ever reads it.
func (a *Adapter) notify(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request, fn func(context.Context, json.RawMessage) error) error {
	err := fn(ctx, req.Params())
	if err != nil {
		a.Log.Warn("notification handler failed", "method", req.Method(), "error", err)
		a.reportError(ctx, err)
	}
	if req.IsNotify() {
		return nil
	}
	return reply(ctx, nil, err)
}

func (a *Adapter) call(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request, fn func(context.Context, json.RawMessage) (any, error)) error {
	result, err := fn(ctx, req.Params())
	if err != nil {
		a.Log.Debug("request failed", "method", req.Method(), "error", err)
		a.reportError(ctx, err)
	}
	return reply(ctx, result, err)
}

func (a *Adapter) didOpen(ctx context.Context, raw json.RawMessage) error {
	var params protocol.DidOpenTextDocumentParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return err
	}

	uriStr := string(params.TextDocument.URI)
	paths, err := session.ResolveLocalPaths(toFilePath(uriStr))
	if err != nil {
		return err
	}

	remote := a.Remote
	data, err := a.loadBIR(ctx, uriStr, paths, remote)
	if err != nil {
		return kind.Wrap(kind.BIRLoadFailure, err)
	}
	m, err := bir.Decode(data)
	if err != nil {
		return kind.Wrap(kind.BIRLoadFailure, err)
	}

	lines := splitLines(params.TextDocument.Text)
	view := bir.NewView(m)
	addrLines := listing.ExtractAddressLines(lines)

	idx, err := index.LoadIfFresh(paths.IndexPath, len(lines))
	if err != nil {
		idx, err = index.Build(view, addrLines)
		if err != nil {
			return err
		}
		_ = idx.Save(paths.IndexPath)
	}

	sess := session.New(uriStr, paths, remote, m, idx, lines)
	a.Registry.Open(sess)
	return nil
}

func (a *Adapter) loadBIR(ctx context.Context, uri string, paths session.Paths, remote bool) ([]byte, error) {
	if a.Loader == nil {
		return nil, kind.New(kind.BIRLoadFailure, "no BIR loader configured")
	}
	return a.Loader.Load(ctx, uri, paths, remote)
}

func (a *Adapter) didChange(ctx context.Context, raw json.RawMessage) error {
	var params protocol.DidChangeTextDocumentParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return err
	}

	uriStr := string(params.TextDocument.URI)
	sess, ok := a.Registry.Get(uriStr)
	if !ok {
		return kind.New(kind.NotCached, "no session for %s", uriStr)
	}

	lines := sess.Lines()
	idx := sess.Index()
	for _, change := range params.ContentChanges {
		start := int(change.Range.Start.Line)
		end := int(change.Range.End.Line)
		sess.Tracker().ApplyChange(idx, func(block uuid.UUID) string {
			return index.BlockText(idx.BlockLines(block), lines)
		}, rewrite.Change{StartLine: start, EndLine: end, Text: change.Text})
		lines = applyLineChange(lines, start, end, change.Text)
	}
	sess.SetLines(lines)
	return nil
}

func (a *Adapter) didSave(ctx context.Context, raw json.RawMessage) error {
	var params protocol.DidSaveTextDocumentParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return err
	}

	uriStr := string(params.TextDocument.URI)
	sess, ok := a.Registry.Get(uriStr)
	if !ok {
		return kind.New(kind.NotCached, "no session for %s", uriStr)
	}

	view := sess.View()
	idx := sess.Index()
	lines := sess.Lines()

	_, err := a.Rewriter.Save(ctx, sess.Tracker(), view, idx, lines)
	if err != nil {
		return err
	}

	data := bir.Encode(view.Module)
	if sess.Remote && a.Loader != nil {
		return a.Loader.Push(ctx, uriStr, data)
	}
	return writeFile(sess.Paths.BIRPath, data)
}

func (a *Adapter) didClose(ctx context.Context, raw json.RawMessage) error {
	var params protocol.DidCloseTextDocumentParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return err
	}
	a.Registry.Close(string(params.TextDocument.URI))
	return nil
}

func (a *Adapter) definition(ctx context.Context, raw json.RawMessage) (any, error) {
	var params protocol.DefinitionParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	sess, ok := a.Registry.Get(string(params.TextDocument.URI))
	if !ok {
		return nil, kind.New(kind.NotCached, "no session for %s", params.TextDocument.URI)
	}

	engine := nav.New(sess.View(), sess.Index(), sess.Lines())
	loc, err := engine.Definition(int(params.Position.Line), int(params.Position.Character))
	if err != nil {
		a.Log.Debug("definition failed", "error", err)
		return nil, nil //nolint:nilerr // navigation failures return null, not an error (spec §7)
	}
	return toProtocolLocation(params.TextDocument.URI, sess.Lines(), loc), nil
}

func (a *Adapter) references(ctx context.Context, raw json.RawMessage) (any, error) {
	var params protocol.ReferenceParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	sess, ok := a.Registry.Get(string(params.TextDocument.URI))
	if !ok {
		return nil, kind.New(kind.NotCached, "no session for %s", params.TextDocument.URI)
	}

	engine := nav.New(sess.View(), sess.Index(), sess.Lines())
	locs, err := engine.References(int(params.Position.Line), int(params.Position.Character))
	if err != nil {
		a.Log.Debug("references failed", "error", err)
		return nil, nil //nolint:nilerr // navigation failures return null, not an error (spec §7)
	}

	out := make([]protocol.Location, 0, len(locs))
	for _, l := range locs {
		out = append(out, toProtocolLocation(params.TextDocument.URI, sess.Lines(), l))
	}
	return out, nil
}

func (a *Adapter) hover(ctx context.Context, raw json.RawMessage) (any, error) {
	var params protocol.HoverParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	sess, ok := a.Registry.Get(string(params.TextDocument.URI))
	if !ok {
		return nil, kind.New(kind.NotCached, "no session for %s", params.TextDocument.URI)
	}

	engine := nav.New(sess.View(), sess.Index(), sess.Lines())
	text, err := engine.Hover(int(params.Position.Line), int(params.Position.Character))
	if err != nil {
		a.Log.Debug("hover failed", "error", err)
		return nil, nil //nolint:nilerr
	}
	return &protocol.Hover{Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: text}}, nil
}

func (a *Adapter) executeCommand(ctx context.Context, raw json.RawMessage) (any, error) {
	var params protocol.ExecuteCommandParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	return a.dispatchCommand(ctx, params.Command, params.Arguments)
}

// toFilePath resolves a document URI to a filesystem path via go.lsp.dev/
// uri, falling back to the raw string for URIs that don't parse as file://
// (e.g. a bare path passed directly in tests).
func toFilePath(uriStr string) string {
	u, err := uri.Parse(uriStr)
	if err != nil {
		return uriStr
	}
	return u.Filename()
}

func writeFile(path string, data []byte) error {
	return writeFileImpl(path, data)
}

func toBase64(data []byte) string { return base64.StdEncoding.EncodeToString(data) }

func fromBase64(s string) ([]byte, error) { return base64.StdEncoding.DecodeString(s) }
