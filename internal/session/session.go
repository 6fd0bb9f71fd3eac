package session

import (
	"sync"

	"github.com/grammatech/gtirb-lsp-go/internal/bir"
	"github.com/grammatech/gtirb-lsp-go/internal/index"
	"github.com/grammatech/gtirb-lsp-go/internal/rewrite"
	"github.com/grammatech/gtirb-lsp-go/internal/xsync"
)

// Session is the per-open-document state bundle (spec §3 "Session state"):
// the decoded BIR, its View, the line<->Offset Index, the current line
// buffer, the dirty-block Tracker, and the path bindings used to persist
// both the BIR and the index. A Session owns all of this exclusively; the
// only thing shared across handlers is the Registry that holds Sessions
// keyed by URI (spec §5 "Shared state").
type Session struct {
	URI string

	Paths  Paths
	Remote bool

	mu      sync.RWMutex
	module  *bir.Module
	view    *bir.View
	idx     *index.Index
	lines   []string
	tracker *rewrite.Tracker
}

// New wraps an already-loaded Module/Index/lines into a Session.
func New(uri string, paths Paths, remote bool, m *bir.Module, idx *index.Index, lines []string) *Session {
	return &Session{
		URI:     uri,
		Paths:   paths,
		Remote:  remote,
		module:  m,
		view:    bir.NewView(m),
		idx:     idx,
		lines:   lines,
		tracker: rewrite.NewTracker(),
	}
}

// View returns the read-only BIR facade (spec §4.1). Safe to call
// concurrently with navigation requests on the same Session; did_save is
// the only writer and is serialized per spec §5.
func (s *Session) View() *bir.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Index returns the current line<->Offset index.
func (s *Session) Index() *index.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx
}

// Lines returns the current line buffer.
func (s *Session) Lines() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lines
}

// Tracker returns the dirty-block tracker (spec §4.5).
func (s *Session) Tracker() *rewrite.Tracker {
	return s.tracker
}

// SetLines replaces the line buffer, e.g. after the LSP Adapter's own text
// synchronization applies a didChange event to the document's full text
// (spec §4.5 describes only the index-maintenance half of did_change; the
// text buffer itself is kept by the transport layer and handed back here).
func (s *Session) SetLines(lines []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = lines
}

// Registry is the top-level URI -> Session map (spec §9 "SessionRegistry
// owning keyed Session values").
type Registry struct {
	sessions xsync.Map[string, *Session]
}

func NewRegistry() *Registry { return &Registry{} }

// Open registers a new Session for uri, replacing any existing one.
func (r *Registry) Open(s *Session) {
	r.sessions.Store(s.URI, s)
}

// Get returns the Session for uri, or (nil, false) if none is open
// (kind.NotCached at the call site).
func (r *Registry) Get(uri string) (*Session, bool) {
	return r.sessions.Load(uri)
}

// Close evicts the Session for uri (spec §4.6 "On close: evict the
// session and its indexes; keep the JSON on disk").
func (r *Registry) Close(uri string) {
	r.sessions.Delete(uri)
}
