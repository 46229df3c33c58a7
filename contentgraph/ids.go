package contentgraph

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NodeAggregateID identifies a node aggregate across all of its dimension variants.
type NodeAggregateID string

// NewNodeAggregateID generates a new random aggregate id.
func NewNodeAggregateID() NodeAggregateID {
	return NodeAggregateID(uuid.New().String())
}

func (id NodeAggregateID) String() string { return string(id) }

// ContentRepositoryID names a content repository instance.
type ContentRepositoryID string

func (id ContentRepositoryID) String() string { return string(id) }

// ContentStreamID identifies a content stream (the event stream behind a workspace).
type ContentStreamID string

// NewContentStreamID generates a new random content stream id.
func NewContentStreamID() ContentStreamID {
	return ContentStreamID(uuid.New().String())
}

func (id ContentStreamID) String() string { return string(id) }

// WorkspaceName names a workspace.
type WorkspaceName string

// LiveWorkspaceName is the name of the published workspace.
const LiveWorkspaceName WorkspaceName = "live"

// Workspace binds a workspace name to its current content stream.
type Workspace struct {
	Name                   WorkspaceName   `json:"name"`
	CurrentContentStreamID ContentStreamID `json:"current_content_stream_id"`
}

// NodeTypeName is the fully qualified name of a node type, e.g. "Sitegeist.Taxonomy:Vocabulary".
type NodeTypeName string

func (n NodeTypeName) String() string { return string(n) }

// NodeName is the path segment of a node below its parent. Empty means unnamed.
type NodeName string

func (n NodeName) String() string { return string(n) }

// nameReplacer handles letters that do not decompose into base letter + mark.
var nameReplacer = strings.NewReplacer(
	"ß", "ss",
	"æ", "ae", "Æ", "ae",
	"œ", "oe", "Œ", "oe",
	"ø", "o", "Ø", "o",
	"ł", "l", "Ł", "l",
	"đ", "d", "Đ", "d",
	"þ", "th", "Þ", "th",
)

// TransliterateNodeName turns arbitrary user input into a valid node name:
// lower case ASCII letters, digits and single dashes. Returns an empty name if
// nothing usable is left.
func TransliterateNodeName(s string) NodeName {
	s = nameReplacer.Replace(s)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return NodeName(strings.TrimRight(b.String(), "-"))
}
