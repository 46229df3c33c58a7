package contentgraph

// Command is a write request handled by a ContentRepository.
type Command interface {
	CommandName() string
}

// CreateRootNodeAggregateWithNode creates a root node visible in every dimension space point.
type CreateRootNodeAggregateWithNode struct {
	ContentStreamID ContentStreamID
	NodeAggregateID NodeAggregateID
	NodeTypeName    NodeTypeName
}

func (CreateRootNodeAggregateWithNode) CommandName() string { return "CreateRootNodeAggregateWithNode" }

// CreateNodeAggregateWithNode creates a node in one origin dimension space
// point below a parent that is visible there.
type CreateNodeAggregateWithNode struct {
	ContentStreamID           ContentStreamID
	NodeAggregateID           NodeAggregateID
	NodeTypeName              NodeTypeName
	OriginDimensionSpacePoint DimensionSpacePoint
	ParentNodeAggregateID     NodeAggregateID
	NodeName                  NodeName
	Properties                map[string]any
}

func (CreateNodeAggregateWithNode) CommandName() string { return "CreateNodeAggregateWithNode" }

// SetNodeProperties merges properties into one node variant.
type SetNodeProperties struct {
	ContentStreamID           ContentStreamID
	NodeAggregateID           NodeAggregateID
	OriginDimensionSpacePoint DimensionSpacePoint
	Properties                map[string]any
}

func (SetNodeProperties) CommandName() string { return "SetNodeProperties" }

// ChangeNodeAggregateName renames a node aggregate in all variants.
type ChangeNodeAggregateName struct {
	ContentStreamID ContentStreamID
	NodeAggregateID NodeAggregateID
	NewNodeName     NodeName
}

func (ChangeNodeAggregateName) CommandName() string { return "ChangeNodeAggregateName" }

// CreateNodeVariant copies the source variant of an aggregate into another
// origin dimension space point.
type CreateNodeVariant struct {
	ContentStreamID ContentStreamID
	NodeAggregateID NodeAggregateID
	SourceOrigin    DimensionSpacePoint
	TargetOrigin    DimensionSpacePoint
}

func (CreateNodeVariant) CommandName() string { return "CreateNodeVariant" }

// NodeVariantSelectionStrategy decides which variants RemoveNodeAggregate affects.
type NodeVariantSelectionStrategy string

const (
	// AllVariants removes the aggregate with every variant and all descendants.
	AllVariants NodeVariantSelectionStrategy = "allVariants"
	// OnlyGivenVariant removes the variant covering the given point, and the
	// same-origin variants of all descendants.
	OnlyGivenVariant NodeVariantSelectionStrategy = "onlyGivenVariant"
)

// RemoveNodeAggregate removes node variants according to Strategy.
type RemoveNodeAggregate struct {
	ContentStreamID            ContentStreamID
	NodeAggregateID            NodeAggregateID
	CoveredDimensionSpacePoint DimensionSpacePoint
	Strategy                   NodeVariantSelectionStrategy
}

func (RemoveNodeAggregate) CommandName() string { return "RemoveNodeAggregate" }

// SetNodeReferences replaces the named references of one source variant.
type SetNodeReferences struct {
	ContentStreamID       ContentStreamID
	SourceNodeAggregateID NodeAggregateID
	SourceOrigin          DimensionSpacePoint
	ReferenceName         string
	Targets               []NodeAggregateID
}

func (SetNodeReferences) CommandName() string { return "SetNodeReferences" }
