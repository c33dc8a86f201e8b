// Package protocol defines the message types exchanged between the viewer
// UI and a document. Requests flow UI -> provider, responses flow back.
package protocol

// Message kinds. A response always carries the kind of the request that
// produced it.
const (
	KindQuery = "query"
	KindMore  = "more"
)

// Request is a message from the UI asking for query execution.
// Kind "query" runs a fresh statement with Limit rows; kind "more" re-runs
// the same statement at Offset to fetch the next page. Offset is ignored
// for "query".
type Request struct {
	Kind   string `json:"kind"`
	SQL    string `json:"sql"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset,omitempty"`
}

// Response is the result of dispatching a Request. Exactly one of Message
// and Results is populated: Message carries the engine error text when
// Success is false, Results carries the cleaned rows when Success is true.
type Response struct {
	Kind    string           `json:"kind"`
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	Results []map[string]any `json:"results,omitempty"`
}

// Failure builds a failed response of the given kind.
func Failure(kind string, err error) *Response {
	return &Response{Kind: kind, Success: false, Message: err.Error()}
}

// Successful builds a successful response of the given kind.
func Successful(kind string, rows []map[string]any) *Response {
	return &Response{Kind: kind, Success: true, Results: rows}
}
