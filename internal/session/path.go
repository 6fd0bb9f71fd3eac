// Package session implements the Session Manager (C6, spec §4.6):
// resolving a listing URI to its BIR and index paths, the local/remote
// cache split, the open/close lifecycle, and the editor-facing custom
// commands.
package session

import (
	"crypto/md5" //nolint:gosec // content-addressing a cache filename, not a security boundary
	"encoding/hex"
	"path/filepath"
	"regexp"

	"github.com/grammatech/gtirb-lsp-go/internal/kind"
)

// listingPathPattern matches "<dir>/.vscode.<birname>/<isa>/<birname>.view"
// (spec §4.6). Both birname occurrences must agree.
var listingPathPattern = regexp.MustCompile(`^(.*)/\.vscode\.([^/]+)/([^/]+)/([^/]+)\.view$`)

// Paths is the result of resolving a listing's filesystem path (spec §4.6,
// §6 "On-disk index").
type Paths struct {
	Dir       string
	BIRName   string
	ISA       string
	BIRPath   string
	IndexPath string
}

// ResolveLocalPaths derives BIRPath (<dir>/<birname>) and IndexPath
// (<listing>.json) from a local listing path, rejecting any path that does
// not fit the recognized layout (kind.PathMalformed).
func ResolveLocalPaths(listingPath string) (Paths, error) {
	m := listingPathPattern.FindStringSubmatch(listingPath)
	if m == nil {
		return Paths{}, kind.New(kind.PathMalformed, "listing path %q does not match <dir>/.vscode.<birname>/<isa>/<birname>.view", listingPath)
	}
	dir, birnameDir, isa, birnameFile := m[1], m[2], m[3], m[4]
	if birnameDir != birnameFile {
		return Paths{}, kind.New(kind.PathMalformed, "listing path %q has mismatched birname (%q vs %q)", listingPath, birnameDir, birnameFile)
	}

	return Paths{
		Dir:       dir,
		BIRName:   birnameFile,
		ISA:       isa,
		BIRPath:   filepath.Join(dir, birnameFile),
		IndexPath: listingPath + ".json",
	}, nil
}

// RemoteCachePath derives the server-side cache filename for remote mode
// (spec §4.6, §6 "BIR cache path (remote)"):
// {temp_dir}/{md5(peer_ip + ":" + uri)}.bir, with its index at the same
// path suffixed ".json".
func RemoteCachePath(tempDir, peerIP, uri string) (birPath, indexPath string) {
	sum := md5.Sum([]byte(peerIP + ":" + uri)) //nolint:gosec // cache key, not a security boundary
	name := hex.EncodeToString(sum[:])
	birPath = filepath.Join(tempDir, name+".bir")
	indexPath = birPath + ".json"
	return birPath, indexPath
}
