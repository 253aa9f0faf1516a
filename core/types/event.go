package types

// Event represents a typed record emitted by an engine operation. Attributes
// are stringly-typed so external observers can consume them without importing
// the engine's numeric types.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
