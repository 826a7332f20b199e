package types

import (
	"sort"
	"strings"
)

// Event is the flattened, JSON friendly form of a ledger event.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// LogArgs renders the event as alternating key/value pairs, sorted by key,
// suitable for slog.
func (e *Event) LogArgs() []any {
	if e == nil {
		return nil
	}
	keys := make([]string, 0, len(e.Attributes))
	for key := range e.Attributes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, 2+2*len(keys))
	args = append(args, "event", e.Type)
	for _, key := range keys {
		args = append(args, key, e.Attributes[key])
	}
	return args
}

// Module returns the event type prefix before the first dot.
func (e *Event) Module() string {
	if e == nil {
		return ""
	}
	module, _, _ := strings.Cut(e.Type, ".")
	return module
}
