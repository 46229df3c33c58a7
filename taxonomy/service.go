// Package taxonomy resolves, orders, queries and edits taxonomy vocabularies
// stored in a content repository.
//
// A single taxonomy root node holds the vocabularies; each vocabulary holds a
// tree of taxonomy terms. Content nodes point at terms through named
// references. Lookups that find nothing return nil without an error.
package taxonomy

import (
	"context"
	"fmt"
	"log/slog"

	errs "github.com/c360studio/semstreams/errors"

	cg "github.com/sitegeist/taxonomy/contentgraph"
)

// DefaultReferenceName is the reference content nodes use to point at taxonomies.
const DefaultReferenceName = "taxonomyReferences"

// Service is the entry point to the taxonomy core.
type Service struct {
	repo          cg.ContentRepository
	types         *TypeRegistry
	referenceName string
	logger        *slog.Logger
	metrics       *Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics enables instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithReferenceName sets the reference FindReferencedTaxonomies follows.
func WithReferenceName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.referenceName = name
		}
	}
}

// NewService creates a Service on top of a content repository.
func NewService(repo cg.ContentRepository, types *TypeRegistry, opts ...Option) *Service {
	s := &Service{
		repo:          repo,
		types:         types,
		referenceName: DefaultReferenceName,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ContentRepository() cg.ContentRepository { return s.repo }
func (s *Service) Types() *TypeRegistry                    { return s.types }
func (s *Service) ReferenceName() string                   { return s.referenceName }

// LiveWorkspace returns the live workspace or ErrLiveWorkspaceMissing.
func (s *Service) LiveWorkspace(ctx context.Context) (*cg.Workspace, error) {
	ws, err := s.repo.FindWorkspace(ctx, cg.LiveWorkspaceName)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, ErrLiveWorkspaceMissing
	}
	return ws, nil
}

// DefaultSubgraph is the live subgraph in the first root generalization.
func (s *Service) DefaultSubgraph(ctx context.Context) (cg.Subgraph, error) {
	roots := s.repo.VariationGraph().RootGeneralizations()
	if len(roots) == 0 {
		return nil, errs.WrapFatal(cg.ErrDimensionPointNotAllowed, component, "DefaultSubgraph", "find default dimension space point")
	}
	return s.Subgraph(ctx, roots[0])
}

// Subgraph is the live subgraph in dsp.
func (s *Service) Subgraph(ctx context.Context, dsp cg.DimensionSpacePoint) (cg.Subgraph, error) {
	if !s.repo.VariationGraph().IsAllowed(dsp) {
		return nil, fmt.Errorf("%w: %s", cg.ErrDimensionPointNotAllowed, dsp)
	}
	ws, err := s.LiveWorkspace(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.Subgraph(ws.CurrentContentStreamID, dsp), nil
}

// SubgraphForNode is the subgraph node was read from.
func (s *Service) SubgraphForNode(node *cg.Node) cg.Subgraph {
	return s.repo.SubgraphForNode(node)
}

// NodeByAddress resolves a serialized node address. It returns nil if the
// address is well formed but no node is visible there.
func (s *Service) NodeByAddress(ctx context.Context, address string) (*cg.Node, error) {
	addr, err := cg.ParseNodeAddress(address)
	if err != nil {
		return nil, err
	}
	return s.repo.Subgraph(addr.ContentStreamID, addr.DimensionSpacePoint).FindNodeByID(ctx, addr.AggregateID)
}

// FindOrCreateRoot returns the taxonomy root visible in sg, creating it in the
// live workspace first if there is none. It is not read-only.
func (s *Service) FindOrCreateRoot(ctx context.Context, sg cg.Subgraph) (*cg.Node, error) {
	root, err := sg.FindRootNodeByType(ctx, s.types.RootTypeName())
	if err != nil || root != nil {
		return root, err
	}

	ws, err := s.LiveWorkspace(ctx)
	if err != nil {
		return nil, err
	}
	id := cg.NewNodeAggregateID()
	err = s.handle(ctx, cg.CreateRootNodeAggregateWithNode{
		ContentStreamID: ws.CurrentContentStreamID,
		NodeAggregateID: id,
		NodeTypeName:    s.types.RootTypeName(),
	})
	if err != nil {
		return nil, fmt.Errorf("create taxonomy root: %w", err)
	}
	s.metrics.rootCreated()
	s.logger.Info("Created taxonomy root", "node_aggregate_id", id, "content_stream_id", ws.CurrentContentStreamID)

	root, err = sg.FindRootNodeByType(ctx, s.types.RootTypeName())
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, errs.WrapFatal(ErrRootCreationInconsistency, component, "FindOrCreateRoot", "read created root")
	}
	return root, nil
}

// FindAllVocabularies returns the vocabularies below the root, creating the
// root if needed.
func (s *Service) FindAllVocabularies(ctx context.Context, sg cg.Subgraph) ([]*cg.Node, error) {
	root, err := s.FindOrCreateRoot(ctx, sg)
	if err != nil {
		return nil, err
	}
	return sg.FindChildNodes(ctx, root.AggregateID, cg.FindChildNodesFilter{
		NodeTypes: s.types.Criteria(s.types.VocabularyTypeName()),
	})
}

// FindVocabularyByName matches the node name exactly.
func (s *Service) FindVocabularyByName(ctx context.Context, sg cg.Subgraph, name string) (*cg.Node, error) {
	vocabularies, err := s.FindAllVocabularies(ctx, sg)
	if err != nil {
		return nil, err
	}
	for _, v := range vocabularies {
		if v.Name.String() == name {
			return v, nil
		}
	}
	return nil, nil
}

// ResolveByPath walks from the vocabulary named segments[0] through the
// children named by the remaining segments. Any miss returns nil.
func (s *Service) ResolveByPath(ctx context.Context, sg cg.Subgraph, segments []string) (*cg.Node, error) {
	if len(segments) == 0 {
		return nil, nil
	}
	for _, segment := range segments {
		if segment == "" {
			return nil, nil
		}
	}
	vocabulary, err := s.FindVocabularyByName(ctx, sg, segments[0])
	if err != nil || vocabulary == nil {
		return nil, err
	}
	if len(segments) == 1 {
		return vocabulary, nil
	}
	path := make(cg.NodePath, 0, len(segments)-1)
	for _, segment := range segments[1:] {
		path = append(path, cg.NodeName(segment))
	}
	return sg.FindNodeByPath(ctx, path, vocabulary.AggregateID)
}

// FindTaxonomyByPath resolves a "/"-separated path below a vocabulary. An
// empty path returns the vocabulary itself.
func (s *Service) FindTaxonomyByPath(ctx context.Context, sg cg.Subgraph, vocabularyName, path string) (*cg.Node, error) {
	segments := []string{vocabularyName}
	for _, name := range cg.ParseNodePath(path) {
		segments = append(segments, name.String())
	}
	return s.ResolveByPath(ctx, sg, segments)
}

// handle issues a command and blocks until it is applied.
func (s *Service) handle(ctx context.Context, cmd cg.Command) error {
	res, err := s.repo.Handle(ctx, cmd)
	if err == nil {
		err = res.Block(ctx)
	}
	s.metrics.command(cmd.CommandName(), err)
	if err != nil {
		s.logger.Debug("Command failed", "command", cmd.CommandName(), "error", err)
	}
	return err
}
