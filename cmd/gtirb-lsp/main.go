// Command gtirb-lsp is the language server entrypoint: it wires the LSP
// Adapter onto either a stdio or TCP transport and runs until the client
// disconnects or the process receives an interrupt (spec §6, "CLI").
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"

	flag "github.com/spf13/pflag"
	"go.lsp.dev/jsonrpc2"

	"github.com/grammatech/gtirb-lsp-go/internal/config"
	"github.com/grammatech/gtirb-lsp-go/internal/logging"
	"github.com/grammatech/gtirb-lsp-go/internal/lspserver"
	"github.com/grammatech/gtirb-lsp-go/internal/rewrite"
	"github.com/grammatech/gtirb-lsp-go/internal/session"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	fs := flag.NewFlagSet("gtirb-lsp", flag.ContinueOnError)

	defaults := config.Default()
	tcp := fs.Bool("tcp", defaults.TCP, "serve over TCP instead of stdio")
	stdio := fs.Bool("stdio", !defaults.TCP, "serve over stdio (default)")
	host := fs.String("host", defaults.Host, "TCP host to listen on")
	port := fs.Int("port", defaults.Port, "TCP port to listen on")
	forceRemote := fs.Bool("force-remote", defaults.ForceRemote, "treat the client filesystem as inaccessible even under stdio")
	cfgPath := fs.String("config", "", "optional .gtirb-lsp.yaml overriding defaults")
	verbose := fs.CountP("verbose", "v", "increase log verbosity (-v, -vv)")

	if err := fs.Parse(argv); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !fs.Changed("tcp") {
		*tcp = cfg.TCP
	}
	if !fs.Changed("host") {
		*host = cfg.Host
	}
	if !fs.Changed("port") {
		*port = cfg.Port
	}
	if !fs.Changed("force-remote") {
		*forceRemote = cfg.ForceRemote
	}
	if !fs.Changed("verbose") {
		*verbose = cfg.Verbosity
	}

	log := logging.New(logging.Verbosity(*verbose))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var asm rewrite.Assembler
	if cfg.RewriteAsm {
		asm = rewrite.NewLiteralAssembler()
	} else {
		asm = rewrite.DisabledAssembler{}
	}

	reg := session.NewRegistry()

	serveOne := func(rwc io.ReadWriteCloser, remote bool) error {
		stream := jsonrpc2.NewStream(rwc)
		conn := jsonrpc2.NewConn(stream)

		isRemote := remote || *forceRemote

		var loader lspserver.Loader
		if isRemote {
			tmp := os.TempDir()
			loader = lspserver.RemoteLoader{Conn: conn, CacheDir: tmp, PeerIP: peerAddr(rwc)}
		} else {
			loader = lspserver.LocalLoader{}
		}

		notifier := lspserver.ConnNotifier{Conn: conn}
		adapter := lspserver.NewAdapter(reg, asm, loader, isRemote, notifier, log)
		conn.Go(ctx, adapter.Handle)

		select {
		case <-ctx.Done():
			_ = conn.Close()
			return ctx.Err()
		case <-conn.Done():
			return conn.Err()
		}
	}

	switch {
	case *tcp:
		addr := fmt.Sprintf("%s:%d", *host, *port)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			return 1
		}
		defer ln.Close()
		log.Info("listening", "addr", addr)

		connNet, err := ln.Accept()
		if err != nil {
			log.Error("accept failed", "error", err)
			return 1
		}
		defer connNet.Close()
		if err := serveOne(connNet, true); err != nil && ctx.Err() != nil {
			return 1
		}
		return 0

	case *stdio:
		log.Info("serving over stdio")
		if err := serveOne(stdioConn{}, *forceRemote); err != nil && ctx.Err() != nil {
			return 1
		}
		return 0

	default:
		log.Error("no transport selected; pass --stdio or --tcp")
		return 0
	}
}

// stdioConn adapts os.Stdin/os.Stdout into an io.ReadWriteCloser for
// jsonrpc2.NewStream, the way a stdio-mode LSP server always does (the
// process's own standard streams ARE the transport).
type stdioConn struct{}

func (stdioConn) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdioConn) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdioConn) Close() error {
	_ = os.Stdin.Close()
	return os.Stdout.Close()
}

func peerAddr(rwc io.ReadWriteCloser) string {
	if c, ok := rwc.(net.Conn); ok {
		if addr := c.RemoteAddr(); addr != nil {
			if host, _, err := net.SplitHostPort(addr.String()); err == nil {
				return host
			}
			return addr.String()
		}
	}
	return "stdio"
}
