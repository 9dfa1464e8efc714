// Package lsp serves compiler diagnostics and symbol hovers over the Language Server Protocol.
package lsp

import (
	"context"
	"net/url"
	"sync"

	"github.com/nikandfor/hacked/hfmt"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/M3tex/arc/compiler"
	"github.com/M3tex/arc/compiler/ast"
	"github.com/M3tex/arc/compiler/diag"
)

type (
	Server struct {
		Options compiler.Options
		Version string

		mu   sync.Mutex
		docs map[protocol.DocumentUri]*document

		handler protocol.Handler
		log     commonlog.Logger
	}

	document struct {
		path string
		text string

		res *compiler.Result
		err error
	}
)

const Name = "arc"

var source = Name

func New(opts compiler.Options) *Server {
	s := &Server{
		Options: opts,
		docs:    make(map[protocol.DocumentUri]*document),
		log:     commonlog.GetLogger(Name + ".lsp"),
	}

	s.handler = protocol.Handler{
		Initialize:            s.initialize,
		Initialized:           s.initialized,
		Shutdown:              s.shutdown,
		SetTrace:              s.setTrace,
		TextDocumentDidOpen:   s.didOpen,
		TextDocumentDidChange: s.didChange,
		TextDocumentDidClose:  s.didClose,
		TextDocumentHover:     s.hover,
	}

	return s
}

// Run serves on stdin and stdout until the client exits.
func (s *Server) Run(debug bool) error {
	srv := server.NewServer(&s.handler, Name, debug)

	return srv.RunStdio()
}

func (s *Server) initialize(gctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	caps := s.handler.CreateServerCapabilities()

	full := protocol.TextDocumentSyncKindFull
	if opts, ok := caps.TextDocumentSync.(*protocol.TextDocumentSyncOptions); ok {
		opts.Change = &full
	}

	caps.HoverProvider = true

	info := &protocol.InitializeResultServerInfo{Name: Name}
	if s.Version != "" {
		info.Version = &s.Version
	}

	if params.ClientInfo != nil {
		s.log.Info("initialize", "client", params.ClientInfo.Name)
	}

	return protocol.InitializeResult{
		Capabilities: caps,
		ServerInfo:   info,
	}, nil
}

func (s *Server) initialized(gctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *Server) shutdown(gctx *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)

	return nil
}

func (s *Server) setTrace(gctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)

	return nil
}

func (s *Server) didOpen(gctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	doc := params.TextDocument

	s.publish(gctx, doc.URI, s.Update(doc.URI, doc.Text))

	return nil
}

func (s *Server) didChange(gctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	text, ok := wholeText(params.ContentChanges)
	if !ok {
		return nil
	}

	uri := params.TextDocument.URI

	s.publish(gctx, uri, s.Update(uri, text))

	return nil
}

func (s *Server) didClose(gctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()

	s.publish(gctx, uri, []protocol.Diagnostic{})

	return nil
}

func (s *Server) hover(gctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	return s.Hover(params.TextDocument.URI, params.Position), nil
}

func (s *Server) publish(gctx *glsp.Context, uri protocol.DocumentUri, ds []protocol.Diagnostic) {
	gctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: ds,
	})
}

// Update checks the new document text and returns its diagnostics.
func (s *Server) Update(uri protocol.DocumentUri, text string) []protocol.Diagnostic {
	opts := s.Options
	opts.Check = true

	d := &document{
		path: uriPath(uri),
		text: text,
	}

	d.res, d.err = compiler.Compile(context.Background(), d.path, []byte(text), opts)

	s.mu.Lock()
	s.docs[uri] = d
	s.mu.Unlock()

	s.log.Info("checked", "uri", uri, "warnings", len(d.res.Warnings), "err", d.err)

	return d.diagnostics()
}

// Hover describes the symbol under pos.
func (s *Server) Hover(uri protocol.DocumentUri, pos protocol.Position) *protocol.Hover {
	s.mu.Lock()
	d := s.docs[uri]
	s.mu.Unlock()

	if d == nil || d.res == nil || d.res.Prog == nil || d.res.Front.Result == nil {
		return nil
	}

	line, ok := d.res.Lookup(d.path, int(pos.Line)+1)
	if !ok {
		return nil
	}

	id, ok := ast.Find[*ast.Ident](d.res.Prog, line, int(pos.Character)+1)
	if !ok {
		return nil
	}

	sym := d.res.Front.Result.Uses[id]
	if sym == nil {
		return nil
	}

	var b []byte

	b = hfmt.Appendf(b, "```\n%s: %v\n```\n\n", sym.ID, sym.Kind)
	b = hfmt.Appendf(b, "zone %v, adresse %d, taille %d", sym.Zone, sym.Adr, sym.Size)

	rng := d.rangeOf(id.Span)

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: string(b),
		},
		Range: &rng,
	}
}

func (d *document) diagnostics() []protocol.Diagnostic {
	ds := []protocol.Diagnostic{}

	if d.res != nil {
		for _, w := range d.res.Warnings {
			ds = append(ds, d.diagnostic(protocol.DiagnosticSeverityWarning, w.Span, w.Msg))
		}
	}

	if d.err == nil {
		return ds
	}

	if e, ok := diag.As(d.err); ok {
		return append(ds, d.diagnostic(protocol.DiagnosticSeverityError, e.Span, e.Msg))
	}

	return append(ds, d.diagnostic(protocol.DiagnosticSeverityError, diag.NoSpan, d.err.Error()))
}

func (d *document) diagnostic(sev protocol.DiagnosticSeverity, s ast.Span, msg string) protocol.Diagnostic {
	if d.res != nil && s.Line != 0 {
		if file, line := d.res.Origin(s.Line); file != d.path {
			msg = string(hfmt.Appendf(nil, "%s:%d: %s", file, line, msg))
			s = diag.NoSpan
		}
	}

	return protocol.Diagnostic{
		Range:    d.rangeOf(s),
		Severity: &sev,
		Source:   &source,
		Message:  msg,
	}
}

// rangeOf converts a span of the preprocessed text to a zero-based range of the document.
func (d *document) rangeOf(s ast.Span) protocol.Range {
	if s.Line == 0 {
		return protocol.Range{}
	}

	line, endLine := s.Line, s.EndLine
	if endLine < line {
		endLine = line
	}

	if d.res != nil {
		_, line = d.res.Origin(line)
		_, endLine = d.res.Origin(endLine)
	}

	col, endCol := s.Col, s.EndCol
	if col > 0 {
		col--
	}

	if endLine == line && endCol < col {
		endCol = col
	}

	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(line - 1), Character: protocol.UInteger(col)},
		End:   protocol.Position{Line: protocol.UInteger(endLine - 1), Character: protocol.UInteger(endCol)},
	}
}

func wholeText(changes []any) (text string, ok bool) {
	for _, c := range changes {
		switch c := c.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text, ok = c.Text, true
		case *protocol.TextDocumentContentChangeEventWhole:
			text, ok = c.Text, true
		}
	}

	return
}

func uriPath(uri protocol.DocumentUri) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}

	return u.Path
}
