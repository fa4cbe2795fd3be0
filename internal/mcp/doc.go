// Package mcp exposes the highlight engine to a model as MCP tools.
//
// The server speaks the Model Context Protocol over stdio using
// github.com/modelcontextprotocol/go-sdk/mcp. A client opens a document,
// asks for clauses to be highlighted by quoting them, and renders or
// closes the document when done:
//
//	open_document     html, root_xpath    -> session_id
//	highlight_clause  session_id, quote   -> highlighted, strategy, path
//	clear_highlights  session_id          -> cleared
//	render_document   session_id          -> html
//	close_document    session_id          -> closed
//
// A quote that cannot be found is a normal result with highlighted=false,
// not a tool error.
package mcp
