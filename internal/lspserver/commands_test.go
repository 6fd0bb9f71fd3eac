package lspserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grammatech/gtirb-lsp-go/internal/bir"
	"github.com/grammatech/gtirb-lsp-go/internal/index"
	"github.com/grammatech/gtirb-lsp-go/internal/listing"
	"github.com/grammatech/gtirb-lsp-go/internal/session"
)

// recordingNotifier captures every window/showMessage and window/logMessage
// call an Adapter makes, so tests can assert on diagnostic delivery without
// a real jsonrpc2.Conn.
type recordingNotifier struct {
	calls []recordedNotification
}

type recordedNotification struct {
	method string
	params any
}

func (r *recordingNotifier) Notify(_ context.Context, method string, params any) error {
	r.calls = append(r.calls, recordedNotification{method: method, params: params})
	return nil
}

func fixtureAdapter(t *testing.T) (*Adapter, string) {
	t.Helper()
	a, u := fixtureAdapterWithNotifier(t, nil)
	return a, u
}

func fixtureAdapterWithNotifier(t *testing.T, notifier Notifier) (*Adapter, string) {
	t.Helper()
	blockID := uuid.New()
	symID := uuid.New()

	m := bir.NewModule()
	m.Blocks[blockID] = &bir.Block{UUID: blockID, Kind: bir.CodeBlock, Address: 0x401130, Size: 4}
	m.Symbols = append(m.Symbols, &bir.Symbol{UUID: symID, Name: "main", Referent: &blockID})
	fnID := uuid.New()
	m.Functions[fnID] = &bir.Function{UUID: fnID, Symbol: symID, Blocks: []uuid.UUID{blockID}}
	m.Reindex()

	lines := []string{
		"main:",
		"  push RBP # EA: 0x401130",
		"  nop # EA: 0x401131",
	}

	view := bir.NewView(m)
	idx, err := index.Build(view, listing.ExtractAddressLines(lines))
	require.NoError(t, err)

	const uri = "file:///proj/.vscode.foo/x64/foo.view"
	sess := session.New(uri, session.Paths{}, false, m, idx, lines)

	reg := session.NewRegistry()
	reg.Open(sess)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := NewAdapter(reg, nil, LocalLoader{}, false, notifier, log)
	return a, uri
}

func rawArg(t *testing.T, v any) []json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return []json.RawMessage{data}
}

func TestDispatchGetLineFromAddress(t *testing.T) {
	t.Parallel()
	a, uri := fixtureAdapter(t)

	result, err := a.dispatchCommand(context.Background(), "getLineFromAddress", rawArg(t, map[string]string{
		"uri": uri, "hexAddr": "0x401131",
	}))
	require.NoError(t, err)
	require.NotNil(t, result)
}

func TestDispatchGetAddressOfSymbol(t *testing.T) {
	t.Parallel()
	notifier := &recordingNotifier{}
	a, uri := fixtureAdapterWithNotifier(t, notifier)

	result, err := a.dispatchCommand(context.Background(), "getAddressOfSymbol", rawArg(t, map[string]string{
		"uri": uri, "name": "main",
	}))
	require.NoError(t, err)
	assert.Equal(t, "0x401130", result)

	result, err = a.dispatchCommand(context.Background(), "getAddressOfSymbol", rawArg(t, map[string]string{
		"uri": uri, "name": "nope",
	}))
	require.NoError(t, err)
	assert.Nil(t, result)
	require.Len(t, notifier.calls, 1)
	assert.Equal(t, "window/showMessage", notifier.calls[0].method)
}

func TestDispatchGetModuleName(t *testing.T) {
	t.Parallel()
	a, uri := fixtureAdapter(t)

	result, err := a.dispatchCommand(context.Background(), "getModuleName", rawArg(t, map[string]any{
		"uri": uri, "idx": 0,
	}))
	require.NoError(t, err)
	assert.Equal(t, "module0", result)
}

func TestDispatchUnknownCommand(t *testing.T) {
	t.Parallel()
	a, _ := fixtureAdapter(t)
	_, err := a.dispatchCommand(context.Background(), "bogus", nil)
	assert.Error(t, err)
}

func TestDispatchNoSession(t *testing.T) {
	t.Parallel()
	a, _ := fixtureAdapter(t)
	_, err := a.dispatchCommand(context.Background(), "getModuleName", rawArg(t, map[string]any{
		"uri": "file:///nope", "idx": 0,
	}))
	assert.Error(t, err)
}
