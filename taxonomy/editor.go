package taxonomy

import (
	"context"
	"fmt"

	errs "github.com/c360studio/semstreams/errors"
	"github.com/go-playground/validator/v10"

	cg "github.com/sitegeist/taxonomy/contentgraph"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("nodename", func(fl validator.FieldLevel) bool {
		return cg.TransliterateNodeName(fl.Field().String()) != ""
	})
}

// CreateInput describes a new vocabulary or taxonomy. Name is transliterated
// into the node name; a missing title property defaults to Name.
type CreateInput struct {
	Name       string         `json:"name" validate:"required,nodename"`
	Properties map[string]any `json:"properties,omitempty"`
}

// UpdateInput describes changes to a vocabulary or taxonomy. Properties are
// merged into the existing ones.
type UpdateInput struct {
	Name       string         `json:"name" validate:"required,nodename"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Editor creates, updates and removes vocabularies and taxonomies in the live
// workspace. Every write blocks until it is visible.
type Editor struct {
	svc *Service
}

// NewEditor creates an Editor for svc.
func NewEditor(svc *Service) *Editor {
	return &Editor{svc: svc}
}

// CreateVocabulary adds a vocabulary below the taxonomy root. The new node
// originates in the root's dimension space point.
func (e *Editor) CreateVocabulary(ctx context.Context, root *cg.Node, in CreateInput) (*cg.Node, error) {
	if !e.svc.types.IsRoot(root) {
		return nil, errs.WrapInvalid(ErrInvalidParent, component, "CreateVocabulary", "check parent type")
	}
	return e.create(ctx, "CreateVocabulary", root, e.svc.types.VocabularyTypeName(), in)
}

// CreateTaxonomy adds a taxonomy below a vocabulary or another taxonomy.
func (e *Editor) CreateTaxonomy(ctx context.Context, parent *cg.Node, in CreateInput) (*cg.Node, error) {
	if !e.svc.types.IsVocabulary(parent) && !e.svc.types.IsTaxonomy(parent) {
		return nil, errs.WrapInvalid(ErrInvalidParent, component, "CreateTaxonomy", "check parent type")
	}
	return e.create(ctx, "CreateTaxonomy", parent, e.svc.types.TaxonomyTypeName(), in)
}

func (e *Editor) create(ctx context.Context, method string, parent *cg.Node, typeName cg.NodeTypeName, in CreateInput) (*cg.Node, error) {
	if err := validate.Struct(in); err != nil {
		return nil, errs.WrapInvalid(err, component, method, "validate input")
	}
	ws, err := e.svc.LiveWorkspace(ctx)
	if err != nil {
		return nil, err
	}

	properties := make(map[string]any, len(in.Properties)+1)
	for k, v := range in.Properties {
		properties[k] = v
	}
	if _, ok := properties["title"]; !ok {
		properties["title"] = in.Name
	}

	id := cg.NewNodeAggregateID()
	origin := parent.Subgraph.DimensionSpacePoint
	err = e.svc.handle(ctx, cg.CreateNodeAggregateWithNode{
		ContentStreamID:           ws.CurrentContentStreamID,
		NodeAggregateID:           id,
		NodeTypeName:              typeName,
		OriginDimensionSpacePoint: origin,
		ParentNodeAggregateID:     parent.AggregateID,
		NodeName:                  cg.TransliterateNodeName(in.Name),
		Properties:                properties,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", typeName, err)
	}
	if err := e.EnsureBaseVariantsExist(ctx, ws.CurrentContentStreamID, id, origin); err != nil {
		return nil, err
	}

	node, err := e.svc.repo.SubgraphForNode(parent).FindNodeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	e.svc.logger.Info("Created node", "type", typeName, "name", cg.TransliterateNodeName(in.Name), "node_aggregate_id", id)
	return node, nil
}

// EnsureBaseVariantsExist creates a variant of the aggregate from origin in
// every root generalization that does not show it yet. Each variant is
// written and applied before the next.
func (e *Editor) EnsureBaseVariantsExist(ctx context.Context, cs cg.ContentStreamID, id cg.NodeAggregateID, origin cg.DimensionSpacePoint) error {
	for _, target := range e.svc.repo.VariationGraph().RootGeneralizations() {
		if target.Equal(origin) {
			continue
		}
		existing, err := e.svc.repo.Subgraph(cs, target).FindNodeByID(ctx, id)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		err = e.svc.handle(ctx, cg.CreateNodeVariant{
			ContentStreamID: cs,
			NodeAggregateID: id,
			SourceOrigin:    origin,
			TargetOrigin:    target,
		})
		if err != nil {
			return fmt.Errorf("create variant in %s: %w", target, err)
		}
		e.svc.logger.Debug("Created base variant", "node_aggregate_id", id, "origin", origin.String(), "target", target.String())
	}
	return nil
}

// Update merges properties into the node's origin variant and renames the
// aggregate if the transliterated name changed.
func (e *Editor) Update(ctx context.Context, node *cg.Node, in UpdateInput) (*cg.Node, error) {
	if err := e.checkEditable(node, "Update"); err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, errs.WrapInvalid(err, component, "Update", "validate input")
	}

	// The rename goes first: a name taken by a sibling rejects the whole update.
	cs := node.Subgraph.ContentStreamID
	if name := cg.TransliterateNodeName(in.Name); name != node.Name {
		err := e.svc.handle(ctx, cg.ChangeNodeAggregateName{
			ContentStreamID: cs,
			NodeAggregateID: node.AggregateID,
			NewNodeName:     name,
		})
		if err != nil {
			return nil, fmt.Errorf("rename: %w", err)
		}
	}
	if len(in.Properties) > 0 {
		err := e.svc.handle(ctx, cg.SetNodeProperties{
			ContentStreamID:           cs,
			NodeAggregateID:           node.AggregateID,
			OriginDimensionSpacePoint: node.OriginDimensionSpacePoint,
			Properties:                in.Properties,
		})
		if err != nil {
			return nil, fmt.Errorf("set properties: %w", err)
		}
	}
	return e.svc.repo.SubgraphForNode(node).FindNodeByID(ctx, node.AggregateID)
}

// Delete removes the node with all its dimension variants and descendants.
func (e *Editor) Delete(ctx context.Context, node *cg.Node) error {
	if err := e.checkEditable(node, "Delete"); err != nil {
		return err
	}
	ws, err := e.svc.LiveWorkspace(ctx)
	if err != nil {
		return err
	}
	err = e.svc.handle(ctx, cg.RemoveNodeAggregate{
		ContentStreamID:            ws.CurrentContentStreamID,
		NodeAggregateID:            node.AggregateID,
		CoveredDimensionSpacePoint: node.Subgraph.DimensionSpacePoint,
		Strategy:                   cg.AllVariants,
	})
	if err != nil {
		return fmt.Errorf("remove %s: %w", node.AggregateID, err)
	}
	e.svc.logger.Info("Removed node", "type", node.TypeName, "name", node.Name, "node_aggregate_id", node.AggregateID)
	return nil
}

// SetReferences replaces the references of node's origin variant. An empty
// referenceName uses the service's configured reference.
func (e *Editor) SetReferences(ctx context.Context, node *cg.Node, referenceName string, targets []*cg.Node) error {
	if referenceName == "" {
		referenceName = e.svc.referenceName
	}
	ids := make([]cg.NodeAggregateID, 0, len(targets))
	for _, t := range targets {
		ids = append(ids, t.AggregateID)
	}
	err := e.svc.handle(ctx, cg.SetNodeReferences{
		ContentStreamID:       node.Subgraph.ContentStreamID,
		SourceNodeAggregateID: node.AggregateID,
		SourceOrigin:          node.OriginDimensionSpacePoint,
		ReferenceName:         referenceName,
		Targets:               ids,
	})
	if err != nil {
		return fmt.Errorf("set references of %s: %w", node.AggregateID, err)
	}
	return nil
}

func (e *Editor) checkEditable(node *cg.Node, method string) error {
	if e.svc.types.IsVocabulary(node) || e.svc.types.IsTaxonomy(node) {
		return nil
	}
	return errs.WrapInvalid(ErrNotEditable, component, method, "check node type")
}
