package taxonomy

import (
	"context"
	"testing"

	errs "github.com/c360studio/semstreams/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cg "github.com/sitegeist/taxonomy/contentgraph"
	"github.com/sitegeist/taxonomy/contentgraph/memory"
	"github.com/sitegeist/taxonomy/journal"
)

const (
	typeColor    cg.NodeTypeName = "Acme.Site:Color"
	typeSites    cg.NodeTypeName = "Acme.Site:Sites"
	typeDocument cg.NodeTypeName = "Acme.Site:Document"
)

var (
	en   = cg.DimensionSpacePoint{"language": "en"}
	enUS = cg.DimensionSpacePoint{"language": "en_US"}
	de   = cg.DimensionSpacePoint{"language": "de"}
)

type env struct {
	t       *testing.T
	ctx     context.Context
	journal *journal.Memory
	repo    *memory.Repository
	svc     *Service
	editor  *Editor
}

func testNodeTypes(t *testing.T) *cg.NodeTypeManager {
	t.Helper()
	m, err := cg.NewNodeTypeManager(
		cg.NodeType{Name: DefaultRootTypeName},
		cg.NodeType{Name: DefaultVocabularyTypeName},
		cg.NodeType{Name: DefaultTaxonomyTypeName},
		cg.NodeType{Name: typeColor, SuperTypes: []cg.NodeTypeName{DefaultTaxonomyTypeName}},
		cg.NodeType{Name: typeSites},
		cg.NodeType{Name: typeDocument},
	)
	require.NoError(t, err)
	return m
}

func newEnv(t *testing.T, opts ...Option) *env {
	t.Helper()
	ctx := context.Background()
	variation, err := cg.NewVariationGraph([]cg.ContentDimension{{
		Name: "language",
		Values: []cg.DimensionValue{
			{Value: "en", Specializations: []cg.DimensionValue{{Value: "en_US"}}},
			{Value: "de"},
		},
	}})
	require.NoError(t, err)

	nodeTypes := testNodeTypes(t)
	j := journal.NewMemory()
	repo, err := memory.Open(ctx, memory.Options{ID: "default", NodeTypes: nodeTypes, Variation: variation, Journal: j})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	types, err := NewTypeRegistry(nodeTypes, DefaultTypeNames())
	require.NoError(t, err)

	svc := NewService(repo, types, opts...)
	return &env{t: t, ctx: ctx, journal: j, repo: repo, svc: svc, editor: NewEditor(svc)}
}

func (e *env) subgraph(dsp cg.DimensionSpacePoint) cg.Subgraph {
	e.t.Helper()
	sg, err := e.svc.Subgraph(e.ctx, dsp)
	require.NoError(e.t, err)
	return sg
}

func (e *env) root(dsp cg.DimensionSpacePoint) *cg.Node {
	e.t.Helper()
	root, err := e.svc.FindOrCreateRoot(e.ctx, e.subgraph(dsp))
	require.NoError(e.t, err)
	return root
}

func (e *env) vocabulary(name string) *cg.Node {
	e.t.Helper()
	n, err := e.editor.CreateVocabulary(e.ctx, e.root(en), CreateInput{Name: name})
	require.NoError(e.t, err)
	require.NotNil(e.t, n)
	return n
}

func (e *env) taxonomy(parent *cg.Node, name string) *cg.Node {
	e.t.Helper()
	n, err := e.editor.CreateTaxonomy(e.ctx, parent, CreateInput{Name: name})
	require.NoError(e.t, err)
	require.NotNil(e.t, n)
	return n
}

// raw creates a node directly through the repository, bypassing the editor.
func (e *env) raw(parent *cg.Node, typeName cg.NodeTypeName, name string) *cg.Node {
	e.t.Helper()
	id := cg.NewNodeAggregateID()
	res, err := e.repo.Handle(e.ctx, cg.CreateNodeAggregateWithNode{
		ContentStreamID:           parent.Subgraph.ContentStreamID,
		NodeAggregateID:           id,
		NodeTypeName:              typeName,
		OriginDimensionSpacePoint: parent.Subgraph.DimensionSpacePoint,
		ParentNodeAggregateID:     parent.AggregateID,
		NodeName:                  cg.NodeName(name),
	})
	require.NoError(e.t, err)
	require.NoError(e.t, res.Block(e.ctx))
	n, err := e.repo.SubgraphForNode(parent).FindNodeByID(e.ctx, id)
	require.NoError(e.t, err)
	return n
}

// colors builds Colors > {Warm > {Red, Orange}, Cool}, created out of order.
func (e *env) colors() map[string]*cg.Node {
	e.t.Helper()
	nodes := map[string]*cg.Node{"Colors": e.vocabulary("Colors")}
	nodes["Warm"] = e.taxonomy(nodes["Colors"], "Warm")
	nodes["Cool"] = e.taxonomy(nodes["Colors"], "Cool")
	nodes["Red"] = e.taxonomy(nodes["Warm"], "Red")
	nodes["Orange"] = e.taxonomy(nodes["Warm"], "Orange")
	return nodes
}

func names(nodes []*cg.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name.String()
	}
	return out
}

func childNames(st *cg.Subtree) []string {
	out := make([]string, len(st.Children))
	for i, c := range st.Children {
		out[i] = c.Node.Name.String()
	}
	return out
}

func TestNewTypeRegistry(t *testing.T) {
	m := testNodeTypes(t)

	r, err := NewTypeRegistry(m, DefaultTypeNames())
	require.NoError(t, err)
	assert.Equal(t, DefaultTaxonomyTypeName, r.TaxonomyTypeName())

	tests := []struct {
		name  string
		names TypeNames
	}{
		{"empty root", TypeNames{Vocabulary: DefaultVocabularyTypeName, Taxonomy: DefaultTaxonomyTypeName}},
		{"undeclared taxonomy", TypeNames{Root: DefaultRootTypeName, Vocabulary: DefaultVocabularyTypeName, Taxonomy: "Nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTypeRegistry(m, tt.names)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}

	_, err = NewTypeRegistry(nil, DefaultTypeNames())
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestTypeRegistry_Subtypes(t *testing.T) {
	r, err := NewTypeRegistry(testNodeTypes(t), DefaultTypeNames())
	require.NoError(t, err)

	color := &cg.Node{TypeName: typeColor}
	assert.True(t, r.IsTaxonomy(color))
	assert.False(t, r.IsVocabulary(color))
	assert.False(t, r.IsRoot(nil))
	assert.True(t, r.VocabularyOrTaxonomy().Matches(testNodeTypes(t), typeColor))
}

func TestFindOrCreateRoot_Singleton(t *testing.T) {
	e := newEnv(t)
	sg := e.subgraph(en)

	first, err := e.svc.FindOrCreateRoot(e.ctx, sg)
	require.NoError(t, err)
	require.NotNil(t, first)
	events := e.journal.Len()

	second, err := e.svc.FindOrCreateRoot(e.ctx, sg)
	require.NoError(t, err)
	assert.Equal(t, first.AggregateID, second.AggregateID)
	assert.Equal(t, events, e.journal.Len(), "second call does not write")

	// the root is shared by every dimension
	other, err := e.svc.FindOrCreateRoot(e.ctx, e.subgraph(de))
	require.NoError(t, err)
	assert.Equal(t, first.AggregateID, other.AggregateID)
}

// droppingRepository accepts every command and applies none of them.
type droppingRepository struct {
	cg.ContentRepository
	handled []cg.Command
}

type appliedResult struct{}

func (appliedResult) Block(context.Context) error { return nil }

func (r *droppingRepository) Handle(_ context.Context, cmd cg.Command) (cg.CommandResult, error) {
	r.handled = append(r.handled, cmd)
	return appliedResult{}, nil
}

func TestFindOrCreateRoot_MissingAfterCreateIsFatal(t *testing.T) {
	e := newEnv(t)
	repo := &droppingRepository{ContentRepository: e.repo}
	svc := NewService(repo, e.svc.Types())

	root, err := svc.FindOrCreateRoot(e.ctx, e.subgraph(en))
	assert.Nil(t, root)
	require.ErrorIs(t, err, ErrRootCreationInconsistency)
	assert.True(t, errs.IsFatal(err))
	require.Len(t, repo.handled, 1)
	assert.IsType(t, cg.CreateRootNodeAggregateWithNode{}, repo.handled[0])
	assert.Equal(t, 1, e.journal.Len(), "only the live workspace was written")
}

func TestDefaultSubgraph(t *testing.T) {
	e := newEnv(t)
	sg, err := e.svc.DefaultSubgraph(e.ctx)
	require.NoError(t, err)
	assert.True(t, sg.Identity().DimensionSpacePoint.Equal(en))

	_, err = e.svc.Subgraph(e.ctx, cg.DimensionSpacePoint{"language": "fr"})
	assert.ErrorIs(t, err, cg.ErrDimensionPointNotAllowed)
}

func TestFindVocabularies(t *testing.T) {
	e := newEnv(t)
	e.vocabulary("Colors")
	e.vocabulary("Animals")
	sg := e.subgraph(en)

	all, err := e.svc.FindAllVocabularies(e.ctx, sg)
	require.NoError(t, err)
	assert.Equal(t, []string{"colors", "animals"}, names(all))

	v, err := e.svc.FindVocabularyByName(e.ctx, sg, "animals")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "Animals", v.StringProperty("title"))

	v, err = e.svc.FindVocabularyByName(e.ctx, sg, "Animals")
	require.NoError(t, err)
	assert.Nil(t, v, "names are matched exactly")
}

func TestResolveSubtree_Scenario(t *testing.T) {
	e := newEnv(t)
	nodes := e.colors()

	st, err := e.svc.ResolveSubtree(e.ctx, nodes["Colors"])
	require.NoError(t, err)
	require.NotNil(t, st)

	assert.Equal(t, nodes["Colors"].AggregateID, st.Node.AggregateID)
	assert.Equal(t, []string{"cool", "warm"}, childNames(st))
	assert.Empty(t, st.Children[0].Children)
	assert.Equal(t, []string{"orange", "red"}, childNames(st.Children[1]))
	assert.Equal(t, 2, st.Children[1].Children[0].Level)
}

func TestResolveSubtree_OrderedAtEveryLevel(t *testing.T) {
	e := newEnv(t)
	v := e.vocabulary("v")
	var parents []*cg.Node
	for _, name := range []string{"b", "a", "c"} {
		parents = append(parents, e.taxonomy(v, name))
	}
	for _, p := range parents {
		for _, name := range []string{"b", "a", "c"} {
			e.taxonomy(p, name)
		}
	}

	st, err := e.svc.ResolveSubtree(e.ctx, v)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, childNames(st))
	for _, child := range st.Children {
		assert.Equal(t, []string{"a", "b", "c"}, childNames(child))
	}

	again, err := e.svc.ResolveSubtree(e.ctx, v)
	require.NoError(t, err)
	assert.Equal(t, st, again, "repeated resolution is identical")
}

func TestResolveSubtree_OnlyTaxonomyTypes(t *testing.T) {
	e := newEnv(t)
	nodes := e.colors()
	doc := e.raw(nodes["Warm"], typeDocument, "notes")
	e.raw(doc, DefaultTaxonomyTypeName, "hidden")
	e.raw(nodes["Cool"], typeColor, "blue")

	st, err := e.svc.ResolveSubtree(e.ctx, nodes["Colors"])
	require.NoError(t, err)
	for _, n := range FlattenSubtree(st) {
		assert.True(t, e.svc.Types().IsVocabulary(n) || e.svc.Types().IsTaxonomy(n), "unexpected %s", n.TypeName)
	}
	assert.Equal(t, []string{"blue"}, childNames(st.Children[0]), "subtypes of taxonomy are included")
	assert.Equal(t, []string{"orange", "red"}, childNames(st.Children[1]))
}

func TestResolveSubtree_Missing(t *testing.T) {
	e := newEnv(t)
	nodes := e.colors()
	require.NoError(t, e.editor.Delete(e.ctx, nodes["Colors"]))

	st, err := e.svc.ResolveSubtree(e.ctx, nodes["Colors"])
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestSortSubtree_UnnamedFallsBackToID(t *testing.T) {
	st := &cg.Subtree{Node: &cg.Node{AggregateID: "root"}, Children: []*cg.Subtree{
		{Level: 1, Node: &cg.Node{AggregateID: "zz", Name: "b"}},
		{Level: 1, Node: &cg.Node{AggregateID: "a2"}},
		{Level: 1, Node: &cg.Node{AggregateID: "a1"}},
	}}
	sorted := SortSubtree(st)
	var keys []string
	for _, c := range sorted.Children {
		keys = append(keys, SortKey(c.Node))
	}
	assert.Equal(t, []string{"a1", "a2", "b"}, keys)
	assert.Equal(t, "zz", st.Children[0].Node.AggregateID.String(), "input is not modified")
}

func TestResolveByPath(t *testing.T) {
	e := newEnv(t)
	nodes := e.colors()
	sg := e.subgraph(en)

	tests := []struct {
		name     string
		segments []string
		want     *cg.Node
	}{
		{"vocabulary", []string{"colors"}, nodes["Colors"]},
		{"nested", []string{"colors", "warm", "red"}, nodes["Red"]},
		{"missing segment", []string{"colors", "nonexistent"}, nil},
		{"missing vocabulary", []string{"shapes", "warm"}, nil},
		{"case sensitive", []string{"Colors"}, nil},
		{"empty segment", []string{"colors", ""}, nil},
		{"no segments", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.svc.ResolveByPath(e.ctx, sg, tt.segments)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want.AggregateID, got.AggregateID)
		})
	}

	// walking by hand yields the same node
	warm, err := sg.FindNodeByPath(e.ctx, cg.NodePath{"warm"}, nodes["Colors"].AggregateID)
	require.NoError(t, err)
	red, err := sg.FindNodeByPath(e.ctx, cg.NodePath{"red"}, warm.AggregateID)
	require.NoError(t, err)
	assert.Equal(t, nodes["Red"].AggregateID, red.AggregateID)
}

func TestFindTaxonomyByPath(t *testing.T) {
	e := newEnv(t)
	nodes := e.colors()
	sg := e.subgraph(de)

	n, err := e.svc.FindTaxonomyByPath(e.ctx, sg, "colors", "warm/orange")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, nodes["Orange"].AggregateID, n.AggregateID)

	n, err = e.svc.FindTaxonomyByPath(e.ctx, sg, "colors", "")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, nodes["Colors"].AggregateID, n.AggregateID)
}

func TestAncestry(t *testing.T) {
	e := newEnv(t)
	nodes := e.colors()

	ancestors, err := e.svc.FindTaxonomyAncestors(e.ctx, nodes["Red"])
	require.NoError(t, err)
	assert.Equal(t, []string{"warm"}, names(ancestors))

	ancestors, err = e.svc.FindTaxonomyAncestors(e.ctx, nodes["Warm"])
	require.NoError(t, err)
	assert.Empty(t, ancestors, "vocabulary and root are excluded")

	deep := e.taxonomy(nodes["Red"], "Crimson")
	ancestors, err = e.svc.FindTaxonomyAncestors(e.ctx, deep)
	require.NoError(t, err)
	assert.Equal(t, []string{"red", "warm"}, names(ancestors), "nearest first")

	for _, name := range []string{"Colors", "Warm", "Red"} {
		v, err := e.svc.FindEnclosingVocabulary(e.ctx, nodes[name])
		require.NoError(t, err)
		assert.Equal(t, nodes["Colors"].AggregateID, v.AggregateID, name)
	}

	_, err = e.svc.FindEnclosingVocabulary(e.ctx, e.root(en))
	assert.ErrorIs(t, err, ErrNodeOutsideVocabulary)
}

func TestNodeByAddress(t *testing.T) {
	e := newEnv(t)
	nodes := e.colors()

	n, err := e.svc.NodeByAddress(e.ctx, nodes["Red"].Address().String())
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, nodes["Red"].AggregateID, n.AggregateID)

	_, err = e.svc.NodeByAddress(e.ctx, "garbage")
	assert.ErrorIs(t, err, cg.ErrInvalidNodeAddress)
}
