package watcher

import (
	"encoding/json"

	"github.com/linctl/linctl/internal/jsonpath"
)

// Token is an opaque version marker. Tokens are only ever compared for
// equality. Raw holds the JSON encoding of the value, so the number 5 and
// the string "5" are distinct tokens.
type Token struct {
	Raw     string
	Present bool
}

// TokenAt reads the token at path. Absence is a valid token.
func TokenAt(doc any, path ...string) Token {
	v, ok := jsonpath.Get(doc, path...)
	if !ok {
		return Token{}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return Token{}
	}
	return Token{Raw: string(raw), Present: true}
}

// Classification is the outcome of one entity observation.
type Classification int

const (
	Unchanged Classification = iota
	Initial
	Updated
)

func (c Classification) String() string {
	switch c {
	case Initial:
		return "initial"
	case Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

// EntityDetector tracks the version token of a single issue.
// The zero value is ready to use and starts Uninitialized.
type EntityDetector struct {
	tracking bool
	last     Token
}

// Observe classifies the issue document and records its updatedAt token.
func (d *EntityDetector) Observe(issue any) Classification {
	cur := TokenAt(issue, "updatedAt")
	if !d.tracking {
		d.tracking = true
		d.last = cur
		return Initial
	}
	if cur == d.last {
		return Unchanged
	}
	d.last = cur
	return Updated
}

// Member is an issue that appeared in a collection for the first time.
type Member struct {
	ID    string
	Issue any
}

// CollectionDetector remembers every issue ID it has ever seen.
// IDs are never forgotten: an issue that leaves the result set and comes
// back later does not fire again.
type CollectionDetector struct {
	seen      map[string]struct{}
	baselined bool
}

// NewCollectionDetector returns an empty detector awaiting its baseline poll.
func NewCollectionDetector() *CollectionDetector {
	return &CollectionDetector{seen: make(map[string]struct{})}
}

// Observe records the nodes of one poll and returns those not seen before,
// in the order given. The first call only establishes the baseline and
// always returns nil.
func (d *CollectionDetector) Observe(nodes []any) []Member {
	var fresh []Member
	for _, node := range nodes {
		id := jsonpath.String(node, "", "id")
		if _, ok := d.seen[id]; ok {
			continue
		}
		d.seen[id] = struct{}{}
		if d.baselined {
			fresh = append(fresh, Member{ID: id, Issue: node})
		}
	}
	d.baselined = true
	return fresh
}

// Len returns the number of distinct IDs observed.
func (d *CollectionDetector) Len() int {
	return len(d.seen)
}
