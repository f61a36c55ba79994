package llm

// ResultKind tags the shape a backend response arrived in. Adapters map
// their wire formats onto these variants so callers never inspect raw
// payloads.
type ResultKind int

const (
	// PlainText is a bare completion string (e.g. ollama /api/generate).
	PlainText ResultKind = iota
	// StructuredMessage is a chat-style message with role and content.
	StructuredMessage
	// Unrecognized is a payload the adapter could not map; Raw carries the
	// original body for diagnostics.
	Unrecognized
)

// Result is the normalized outcome of one generation call.
type Result struct {
	Kind  ResultKind
	Text  string
	Model string
	Raw   string
}
