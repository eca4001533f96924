package artifact

import (
	"encoding/json"

	"easel/internal/backend"
)

// Kind selects which media list the resolver inspects inside a node record.
type Kind string

const (
	KindImage Kind = "image"
	KindAudio Kind = "audio"
)

// key returns the node-record key holding the artifact list for this kind.
func (k Kind) key() string {
	if k == KindAudio {
		return "audio"
	}
	return "images"
}

// Resolve selects one artifact from an outputs document. The candidate order
// is the preferred node ids (caller order, de-duplicated) followed by the
// remaining document nodes in wire order. The first node carrying a
// non-empty, well-formed artifact list wins and its first entry is returned.
//
// A false result means no artifact is available yet; the caller should keep
// polling. Malformed node records and lists are skipped, never errors, so
// resolution is deterministic and idempotent for a given document.
func Resolve(outputs backend.Outputs, kind Kind, preferred []string) (backend.Descriptor, string, bool) {
	for _, nodeID := range candidateOrder(outputs, preferred) {
		record, ok := outputs.Node(nodeID)
		if !ok {
			continue
		}
		desc, ok := firstDescriptor(record, kind.key())
		if !ok {
			continue
		}
		return desc, nodeID, true
	}
	return backend.Descriptor{}, "", false
}

func candidateOrder(outputs backend.Outputs, preferred []string) []string {
	seen := make(map[string]struct{}, len(preferred))
	order := make([]string, 0, len(preferred))
	for _, nodeID := range preferred {
		if _, dup := seen[nodeID]; dup {
			continue
		}
		seen[nodeID] = struct{}{}
		order = append(order, nodeID)
	}
	for _, nodeID := range outputs.NodeIDs() {
		if _, dup := seen[nodeID]; dup {
			continue
		}
		seen[nodeID] = struct{}{}
		order = append(order, nodeID)
	}
	return order
}

// firstDescriptor extracts the first artifact entry under listKey. Records
// that are not objects, lists that are not arrays or are empty, and first
// entries that are not objects all yield ok=false.
func firstDescriptor(record json.RawMessage, listKey string) (backend.Descriptor, bool) {
	var node map[string]json.RawMessage
	if err := json.Unmarshal(record, &node); err != nil {
		return backend.Descriptor{}, false
	}
	list, ok := node[listKey]
	if !ok {
		return backend.Descriptor{}, false
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(list, &entries); err != nil || len(entries) == 0 {
		return backend.Descriptor{}, false
	}
	var desc backend.Descriptor
	if err := json.Unmarshal(entries[0], &desc); err != nil {
		return backend.Descriptor{}, false
	}
	return desc, true
}
