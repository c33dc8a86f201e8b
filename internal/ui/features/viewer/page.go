package viewer

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"html/template"
	"strings"
)

// pageTemplate is the self-contained viewer surface: editor, results
// table, loading indicator. Every script tag carries the render's nonce;
// asset references go through the static handler.
var pageTemplate = template.Must(template.New("viewer").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>tabscope &mdash; {{.FileName}}</title>
<link rel="stylesheet" href="/static/app.css">
</head>
<body data-limit="{{.Limit}}">
<div class="layout">
<header>
<h1>tabscope</h1>
<span class="file">{{.FileName}}</span>
</header>
<aside>
<h2>Columns</h2>
<div id="schema"></div>
</aside>
<main>
<textarea id="editor" spellcheck="false" placeholder="SELECT * FROM data">{{.InitialSQL}}</textarea>
<div class="toolbar">
<button id="run">Run</button>
<button id="more" class="secondary" hidden>Load more</button>
<span id="loading">Running&hellip;</span>
</div>
<div id="error"></div>
<div id="results"></div>
<span id="rowcount" class="rowcount"></span>
</main>
</div>
<script nonce="{{.Nonce}}" src="/static/app.js"></script>
</body>
</html>
`))

// newNonce returns a fresh random script nonce. Regenerated on every
// render; never reused across responses.
func newNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return base64.RawStdEncoding.EncodeToString(buf), nil
}

// contentSecurityPolicy builds the policy header for a render: scripts
// only with this render's nonce, styles and SSE connections only from
// our own origin.
func contentSecurityPolicy(nonce string) string {
	return fmt.Sprintf("default-src 'none'; img-src 'self'; style-src 'self'; script-src 'nonce-%s'; connect-src 'self'", nonce)
}

// schemaHTML renders the sidebar column list patched in over SSE.
func schemaHTML(cols []Column) string {
	var b strings.Builder
	b.WriteString(`<div id="schema">`)
	for _, col := range cols {
		b.WriteString(`<div class="column"><span class="name">`)
		b.WriteString(template.HTMLEscapeString(col.Name))
		b.WriteString(`</span><span class="type">`)
		b.WriteString(template.HTMLEscapeString(col.Type))
		b.WriteString(`</span></div>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}
