package contentgraph

import "context"

// FindChildNodesFilter restricts FindChildNodes.
type FindChildNodesFilter struct {
	NodeTypes NodeTypeCriteria
}

// FindAncestorNodesFilter restricts FindAncestorNodes. The walk always
// continues past non-matching ancestors.
type FindAncestorNodesFilter struct {
	NodeTypes NodeTypeCriteria
}

// FindSubtreeFilter restricts FindSubtree. The entry node is always part of
// the result; descendants are only visited through matching nodes.
// MaxLevels of 0 means unlimited.
type FindSubtreeFilter struct {
	NodeTypes NodeTypeCriteria
	MaxLevels int
}

// FindReferencesFilter restricts FindReferences by target node type and
// reference name. An empty ReferenceName matches every reference.
type FindReferencesFilter struct {
	NodeTypes     NodeTypeCriteria
	ReferenceName string
}

// FindBackReferencesFilter restricts FindBackReferences by source node type
// and reference name. An empty ReferenceName matches every reference.
type FindBackReferencesFilter struct {
	NodeTypes     NodeTypeCriteria
	ReferenceName string
}

// Subgraph is read access to one content stream in one dimension space point.
// Lookups that find nothing return nil (or an empty slice) and a nil error.
type Subgraph interface {
	Identity() SubgraphIdentity

	FindNodeByID(ctx context.Context, id NodeAggregateID) (*Node, error)
	FindRootNodeByType(ctx context.Context, typeName NodeTypeName) (*Node, error)
	FindParentNode(ctx context.Context, id NodeAggregateID) (*Node, error)
	FindChildNodes(ctx context.Context, parentID NodeAggregateID, filter FindChildNodesFilter) ([]*Node, error)
	// FindAncestorNodes returns matching ancestors, nearest first.
	FindAncestorNodes(ctx context.Context, id NodeAggregateID, filter FindAncestorNodesFilter) ([]*Node, error)
	FindSubtree(ctx context.Context, id NodeAggregateID, filter FindSubtreeFilter) (*Subtree, error)
	FindReferences(ctx context.Context, id NodeAggregateID, filter FindReferencesFilter) ([]Reference, error)
	FindBackReferences(ctx context.Context, id NodeAggregateID, filter FindBackReferencesFilter) ([]Reference, error)
	FindNodeByPath(ctx context.Context, path NodePath, startID NodeAggregateID) (*Node, error)
}

// CommandResult is the pending outcome of a handled command.
type CommandResult interface {
	// Block waits until the command's effects are visible to subgraph reads.
	Block(ctx context.Context) error
}

// ContentRepository handles commands and hands out subgraphs.
type ContentRepository interface {
	ID() ContentRepositoryID
	Handle(ctx context.Context, cmd Command) (CommandResult, error)

	Subgraph(contentStreamID ContentStreamID, dsp DimensionSpacePoint) Subgraph
	SubgraphForNode(node *Node) Subgraph
	// FindWorkspace returns nil if no workspace has that name.
	FindWorkspace(ctx context.Context, name WorkspaceName) (*Workspace, error)

	VariationGraph() *VariationGraph
	NodeTypeManager() *NodeTypeManager
}
