package contentgraph

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// SubgraphIdentity names the subgraph a node was read from.
type SubgraphIdentity struct {
	ContentRepositoryID ContentRepositoryID `json:"content_repository_id"`
	ContentStreamID     ContentStreamID     `json:"content_stream_id"`
	DimensionSpacePoint DimensionSpacePoint `json:"dimension_space_point"`
}

// Node is a read-only view of one node variant as seen from a subgraph.
type Node struct {
	AggregateID               NodeAggregateID     `json:"aggregate_id"`
	TypeName                  NodeTypeName        `json:"type_name"`
	Name                      NodeName            `json:"name,omitempty"`
	Properties                map[string]any      `json:"properties,omitempty"`
	Subgraph                  SubgraphIdentity    `json:"subgraph"`
	OriginDimensionSpacePoint DimensionSpacePoint `json:"origin_dimension_space_point"`
}

// Property returns a property value or nil.
func (n *Node) Property(key string) any {
	if n.Properties == nil {
		return nil
	}
	return n.Properties[key]
}

// StringProperty returns a property if it is a string, otherwise "".
func (n *Node) StringProperty(key string) string {
	s, _ := n.Property(key).(string)
	return s
}

// Label is the title property, falling back to the name and then the aggregate id.
func (n *Node) Label() string {
	if title := n.StringProperty("title"); title != "" {
		return title
	}
	if n.Name != "" {
		return n.Name.String()
	}
	return n.AggregateID.String()
}

// Address returns the serializable address of this node.
func (n *Node) Address() NodeAddress {
	return NodeAddress{
		ContentStreamID:     n.Subgraph.ContentStreamID,
		DimensionSpacePoint: n.Subgraph.DimensionSpacePoint,
		AggregateID:         n.AggregateID,
	}
}

// Subtree is a node together with its descendants. Level is the depth below
// the node the subtree query started from.
type Subtree struct {
	Level    int        `json:"level"`
	Node     *Node      `json:"node"`
	Children []*Subtree `json:"children"`
}

// Reference is a named edge from or to Node, depending on the query.
type Reference struct {
	Node *Node  `json:"node"`
	Name string `json:"name"`
}

// NodePath is a relative path of node names.
type NodePath []NodeName

// ParseNodePath splits a "/"-separated path, ignoring empty segments.
func ParseNodePath(s string) NodePath {
	var out NodePath
	for _, segment := range strings.Split(s, "/") {
		if segment != "" {
			out = append(out, NodeName(segment))
		}
	}
	return out
}

func (p NodePath) String() string {
	parts := make([]string, len(p))
	for i, name := range p {
		parts[i] = name.String()
	}
	return strings.Join(parts, "/")
}

// NodeAddress locates a node in a specific subgraph. Its string form is
// "<contentStreamId>__<base64url(dimensionSpacePoint)>__<aggregateId>".
type NodeAddress struct {
	ContentStreamID     ContentStreamID
	DimensionSpacePoint DimensionSpacePoint
	AggregateID         NodeAggregateID
}

const addressSeparator = "__"

func (a NodeAddress) String() string {
	dsp := base64.RawURLEncoding.EncodeToString([]byte(a.DimensionSpacePoint.String()))
	return strings.Join([]string{a.ContentStreamID.String(), dsp, a.AggregateID.String()}, addressSeparator)
}

// ParseNodeAddress decodes the string form of a NodeAddress.
func ParseNodeAddress(s string) (NodeAddress, error) {
	parts := strings.Split(s, addressSeparator)
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return NodeAddress{}, fmt.Errorf("%w: %q", ErrInvalidNodeAddress, s)
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return NodeAddress{}, fmt.Errorf("%w: %q: %v", ErrInvalidNodeAddress, s, err)
	}
	dsp, err := ParseDimensionSpacePoint(string(raw))
	if err != nil {
		return NodeAddress{}, fmt.Errorf("%w: %q: %v", ErrInvalidNodeAddress, s, err)
	}
	return NodeAddress{
		ContentStreamID:     ContentStreamID(parts[0]),
		DimensionSpacePoint: dsp,
		AggregateID:         NodeAggregateID(parts[2]),
	}, nil
}
