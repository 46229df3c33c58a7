package memory

import (
	"fmt"

	cg "github.com/sitegeist/taxonomy/contentgraph"
)

// decide validates a command against the current graph and returns the events
// it produces. It never mutates the graph.
func (r *Repository) decide(cmd cg.Command) ([]event, error) {
	switch cmd := cmd.(type) {
	case cg.CreateRootNodeAggregateWithNode:
		return r.decideCreateRoot(cmd)
	case *cg.CreateRootNodeAggregateWithNode:
		return r.decideCreateRoot(*cmd)
	case cg.CreateNodeAggregateWithNode:
		return r.decideCreateNode(cmd)
	case *cg.CreateNodeAggregateWithNode:
		return r.decideCreateNode(*cmd)
	case cg.SetNodeProperties:
		return r.decideSetProperties(cmd)
	case *cg.SetNodeProperties:
		return r.decideSetProperties(*cmd)
	case cg.ChangeNodeAggregateName:
		return r.decideChangeName(cmd)
	case *cg.ChangeNodeAggregateName:
		return r.decideChangeName(*cmd)
	case cg.CreateNodeVariant:
		return r.decideCreateVariant(cmd)
	case *cg.CreateNodeVariant:
		return r.decideCreateVariant(*cmd)
	case cg.RemoveNodeAggregate:
		return r.decideRemove(cmd)
	case *cg.RemoveNodeAggregate:
		return r.decideRemove(*cmd)
	case cg.SetNodeReferences:
		return r.decideSetReferences(cmd)
	case *cg.SetNodeReferences:
		return r.decideSetReferences(*cmd)
	default:
		return nil, fmt.Errorf("%w: %s", cg.ErrUnknownCommand, cmd.CommandName())
	}
}

func (r *Repository) decideCreateRoot(cmd cg.CreateRootNodeAggregateWithNode) ([]event, error) {
	if !r.nodeTypes.Has(cmd.NodeTypeName) {
		return nil, fmt.Errorf("%w: %s", cg.ErrNodeTypeNotDeclared, cmd.NodeTypeName)
	}
	cs, err := r.graph.stream(cmd.ContentStreamID)
	if err != nil {
		return nil, err
	}
	if _, exists := cs.aggregates[cmd.NodeAggregateID]; exists {
		return nil, fmt.Errorf("%w: %s", cg.ErrNodeAggregateExists, cmd.NodeAggregateID)
	}
	for _, id := range cs.order {
		if a := cs.aggregates[id]; a.root && r.nodeTypes.IsOfType(a.typeName, cmd.NodeTypeName) {
			return nil, fmt.Errorf("%w: %s", cg.ErrRootNodeAggregateExists, cmd.NodeTypeName)
		}
	}
	return []event{&RootNodeAggregateWithNodeCreated{
		ContentStreamID: cmd.ContentStreamID,
		NodeAggregateID: cmd.NodeAggregateID,
		NodeTypeName:    cmd.NodeTypeName,
	}}, nil
}

func (r *Repository) decideCreateNode(cmd cg.CreateNodeAggregateWithNode) ([]event, error) {
	if !r.nodeTypes.Has(cmd.NodeTypeName) {
		return nil, fmt.Errorf("%w: %s", cg.ErrNodeTypeNotDeclared, cmd.NodeTypeName)
	}
	if !r.variation.IsAllowed(cmd.OriginDimensionSpacePoint) {
		return nil, fmt.Errorf("%w: %s", cg.ErrDimensionPointNotAllowed, cmd.OriginDimensionSpacePoint)
	}
	cs, err := r.graph.stream(cmd.ContentStreamID)
	if err != nil {
		return nil, err
	}
	if _, exists := cs.aggregates[cmd.NodeAggregateID]; exists {
		return nil, fmt.Errorf("%w: %s", cg.ErrNodeAggregateExists, cmd.NodeAggregateID)
	}
	parent, ok := cs.aggregates[cmd.ParentNodeAggregateID]
	if !ok {
		return nil, fmt.Errorf("%w: parent %s", cg.ErrNodeAggregateNotFound, cmd.ParentNodeAggregateID)
	}
	if r.graph.visible(cs, parent, cmd.OriginDimensionSpacePoint) == nil {
		return nil, fmt.Errorf("%w: %s in %s", cg.ErrParentNotVisible, parent.id, cmd.OriginDimensionSpacePoint)
	}
	if err := checkSiblingName(cs, parent, cmd.NodeAggregateID, cmd.NodeName); err != nil {
		return nil, err
	}
	return []event{&NodeAggregateWithNodeCreated{
		ContentStreamID:       cmd.ContentStreamID,
		NodeAggregateID:       cmd.NodeAggregateID,
		NodeTypeName:          cmd.NodeTypeName,
		Origin:                cmd.OriginDimensionSpacePoint.Clone(),
		ParentNodeAggregateID: cmd.ParentNodeAggregateID,
		NodeName:              cmd.NodeName,
		Properties:            cmd.Properties,
	}}, nil
}

func (r *Repository) decideSetProperties(cmd cg.SetNodeProperties) ([]event, error) {
	a, err := r.mutableAggregate(cmd.ContentStreamID, cmd.NodeAggregateID)
	if err != nil {
		return nil, err
	}
	if _, ok := a.variants[cmd.OriginDimensionSpacePoint.Hash()]; !ok {
		return nil, fmt.Errorf("%w: %s in %s", cg.ErrNodeVariantNotFound, a.id, cmd.OriginDimensionSpacePoint)
	}
	return []event{&NodePropertiesWereSet{
		ContentStreamID: cmd.ContentStreamID,
		NodeAggregateID: cmd.NodeAggregateID,
		Origin:          cmd.OriginDimensionSpacePoint.Clone(),
		Properties:      cmd.Properties,
	}}, nil
}

func (r *Repository) decideChangeName(cmd cg.ChangeNodeAggregateName) ([]event, error) {
	a, err := r.mutableAggregate(cmd.ContentStreamID, cmd.NodeAggregateID)
	if err != nil {
		return nil, err
	}
	if a.name == cmd.NewNodeName {
		return nil, nil
	}
	cs := r.graph.streams[cmd.ContentStreamID]
	if err := checkSiblingName(cs, cs.aggregates[a.parent], a.id, cmd.NewNodeName); err != nil {
		return nil, err
	}
	return []event{&NodeAggregateNameWasChanged{
		ContentStreamID: cmd.ContentStreamID,
		NodeAggregateID: cmd.NodeAggregateID,
		NewNodeName:     cmd.NewNodeName,
	}}, nil
}

func (r *Repository) decideCreateVariant(cmd cg.CreateNodeVariant) ([]event, error) {
	a, err := r.mutableAggregate(cmd.ContentStreamID, cmd.NodeAggregateID)
	if err != nil {
		return nil, err
	}
	if _, ok := a.variants[cmd.SourceOrigin.Hash()]; !ok {
		return nil, fmt.Errorf("%w: %s in %s", cg.ErrNodeVariantNotFound, a.id, cmd.SourceOrigin)
	}
	if !r.variation.IsAllowed(cmd.TargetOrigin) {
		return nil, fmt.Errorf("%w: %s", cg.ErrDimensionPointNotAllowed, cmd.TargetOrigin)
	}
	if _, ok := a.variants[cmd.TargetOrigin.Hash()]; ok {
		return nil, fmt.Errorf("%w: %s in %s", cg.ErrNodeVariantExists, a.id, cmd.TargetOrigin)
	}
	cs := r.graph.streams[cmd.ContentStreamID]
	if parent, ok := cs.aggregates[a.parent]; !ok || r.graph.visible(cs, parent, cmd.TargetOrigin) == nil {
		return nil, fmt.Errorf("%w: %s in %s", cg.ErrParentNotVisible, a.parent, cmd.TargetOrigin)
	}
	return []event{&NodeVariantWasCreated{
		ContentStreamID: cmd.ContentStreamID,
		NodeAggregateID: cmd.NodeAggregateID,
		SourceOrigin:    cmd.SourceOrigin.Clone(),
		TargetOrigin:    cmd.TargetOrigin.Clone(),
	}}, nil
}

func (r *Repository) decideRemove(cmd cg.RemoveNodeAggregate) ([]event, error) {
	a, err := r.mutableAggregate(cmd.ContentStreamID, cmd.NodeAggregateID)
	if err != nil {
		return nil, err
	}
	cs := r.graph.streams[cmd.ContentStreamID]

	var removed []RemovedVariant
	switch cmd.Strategy {
	case cg.AllVariants, "":
		removed = removeAll(cs, a, nil)
	case cg.OnlyGivenVariant:
		if !r.variation.IsAllowed(cmd.CoveredDimensionSpacePoint) {
			return nil, fmt.Errorf("%w: %s", cg.ErrDimensionPointNotAllowed, cmd.CoveredDimensionSpacePoint)
		}
		v := r.graph.covering(a, cmd.CoveredDimensionSpacePoint)
		if v == nil {
			return nil, fmt.Errorf("%w: %s in %s", cg.ErrNodeVariantNotFound, a.id, cmd.CoveredDimensionSpacePoint)
		}
		removed = removeOrigin(cs, a, v.origin, nil)
	default:
		return nil, fmt.Errorf("unknown variant selection strategy %q", cmd.Strategy)
	}
	return []event{&NodeAggregateWasRemoved{
		ContentStreamID: cmd.ContentStreamID,
		NodeAggregateID: cmd.NodeAggregateID,
		Removed:         removed,
	}}, nil
}

// removeAll lists every variant of a and its descendants.
func removeAll(cs *contentStream, a *aggregate, out []RemovedVariant) []RemovedVariant {
	for _, childID := range a.children {
		if child, ok := cs.aggregates[childID]; ok {
			out = removeAll(cs, child, out)
		}
	}
	for _, v := range a.variants {
		out = append(out, RemovedVariant{NodeAggregateID: a.id, Origin: v.origin.Clone()})
	}
	return out
}

// removeOrigin lists the origin variant of a and the same-origin variants of
// its descendants. If a loses its last variant, its subtree goes entirely.
func removeOrigin(cs *contentStream, a *aggregate, origin cg.DimensionSpacePoint, out []RemovedVariant) []RemovedVariant {
	if _, ok := a.variants[origin.Hash()]; !ok {
		return out
	}
	if len(a.variants) == 1 {
		return removeAll(cs, a, out)
	}
	for _, childID := range a.children {
		if child, ok := cs.aggregates[childID]; ok {
			out = removeOrigin(cs, child, origin, out)
		}
	}
	return append(out, RemovedVariant{NodeAggregateID: a.id, Origin: origin.Clone()})
}

func (r *Repository) decideSetReferences(cmd cg.SetNodeReferences) ([]event, error) {
	if cmd.ReferenceName == "" {
		return nil, cg.ErrInvalidReferenceName
	}
	a, err := r.mutableAggregate(cmd.ContentStreamID, cmd.SourceNodeAggregateID)
	if err != nil {
		return nil, err
	}
	if _, ok := a.variants[cmd.SourceOrigin.Hash()]; !ok {
		return nil, fmt.Errorf("%w: %s in %s", cg.ErrNodeVariantNotFound, a.id, cmd.SourceOrigin)
	}
	cs := r.graph.streams[cmd.ContentStreamID]
	for _, target := range cmd.Targets {
		if _, ok := cs.aggregates[target]; !ok {
			return nil, fmt.Errorf("%w: reference target %s", cg.ErrNodeAggregateNotFound, target)
		}
	}
	return []event{&NodeReferencesWereSet{
		ContentStreamID:       cmd.ContentStreamID,
		SourceNodeAggregateID: cmd.SourceNodeAggregateID,
		SourceOrigin:          cmd.SourceOrigin.Clone(),
		ReferenceName:         cmd.ReferenceName,
		Targets:               append([]cg.NodeAggregateID(nil), cmd.Targets...),
	}}, nil
}

// mutableAggregate returns an existing non-root aggregate.
func (r *Repository) mutableAggregate(csID cg.ContentStreamID, id cg.NodeAggregateID) (*aggregate, error) {
	a, err := r.graph.aggregate(csID, id)
	if err != nil {
		return nil, err
	}
	if a.root {
		return nil, fmt.Errorf("%w: %s", cg.ErrRootNodeAggregateImmutable, id)
	}
	return a, nil
}

func checkSiblingName(cs *contentStream, parent *aggregate, self cg.NodeAggregateID, name cg.NodeName) error {
	if name == "" || parent == nil {
		return nil
	}
	for _, id := range parent.children {
		if sibling := cs.aggregates[id]; sibling != nil && id != self && sibling.name == name {
			return fmt.Errorf("%w: %s", cg.ErrNodeNameTaken, name)
		}
	}
	return nil
}
