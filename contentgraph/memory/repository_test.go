package memory

import (
	"context"
	"testing"
	"time"

	errs "github.com/c360studio/semstreams/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cg "github.com/sitegeist/taxonomy/contentgraph"
	"github.com/sitegeist/taxonomy/journal"
)

const (
	typeRoot     cg.NodeTypeName = "Test:Root"
	typeFolder   cg.NodeTypeName = "Test:Folder"
	typeSpecial  cg.NodeTypeName = "Test:SpecialFolder"
	typeDocument cg.NodeTypeName = "Test:Document"
)

var (
	en   = cg.DimensionSpacePoint{"language": "en"}
	enUS = cg.DimensionSpacePoint{"language": "en_US"}
	de   = cg.DimensionSpacePoint{"language": "de"}
)

func testNodeTypes(t *testing.T) *cg.NodeTypeManager {
	t.Helper()
	m, err := cg.NewNodeTypeManager(
		cg.NodeType{Name: typeRoot},
		cg.NodeType{Name: typeFolder},
		cg.NodeType{Name: typeSpecial, SuperTypes: []cg.NodeTypeName{typeFolder}},
		cg.NodeType{Name: typeDocument},
	)
	require.NoError(t, err)
	return m
}

func testVariation(t *testing.T) *cg.VariationGraph {
	t.Helper()
	g, err := cg.NewVariationGraph([]cg.ContentDimension{{
		Name: "language",
		Values: []cg.DimensionValue{
			{Value: "en", Specializations: []cg.DimensionValue{{Value: "en_US"}}},
			{Value: "de"},
		},
	}})
	require.NoError(t, err)
	return g
}

type fixture struct {
	t    *testing.T
	ctx  context.Context
	repo *Repository
	cs   cg.ContentStreamID
	root cg.NodeAggregateID
}

func newFixture(t *testing.T, j journal.Journal) *fixture {
	t.Helper()
	ctx := context.Background()
	repo, err := Open(ctx, Options{
		ID:        "test",
		NodeTypes: testNodeTypes(t),
		Variation: testVariation(t),
		Journal:   j,
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	ws, err := repo.FindWorkspace(ctx, cg.LiveWorkspaceName)
	require.NoError(t, err)
	require.NotNil(t, ws)

	return &fixture{t: t, ctx: ctx, repo: repo, cs: ws.CurrentContentStreamID}
}

func (f *fixture) handle(cmd cg.Command) {
	f.t.Helper()
	res, err := f.repo.Handle(f.ctx, cmd)
	require.NoError(f.t, err)
	require.NoError(f.t, res.Block(f.ctx))
}

func (f *fixture) createRoot() cg.NodeAggregateID {
	f.t.Helper()
	f.root = cg.NewNodeAggregateID()
	f.handle(cg.CreateRootNodeAggregateWithNode{ContentStreamID: f.cs, NodeAggregateID: f.root, NodeTypeName: typeRoot})
	return f.root
}

func (f *fixture) create(parent cg.NodeAggregateID, typeName cg.NodeTypeName, name string, origin cg.DimensionSpacePoint) cg.NodeAggregateID {
	f.t.Helper()
	id := cg.NewNodeAggregateID()
	f.handle(cg.CreateNodeAggregateWithNode{
		ContentStreamID:           f.cs,
		NodeAggregateID:           id,
		NodeTypeName:              typeName,
		OriginDimensionSpacePoint: origin,
		ParentNodeAggregateID:     parent,
		NodeName:                  cg.NodeName(name),
		Properties:                map[string]any{"title": name + " " + origin["language"]},
	})
	return id
}

func (f *fixture) variant(id cg.NodeAggregateID, source, target cg.DimensionSpacePoint) {
	f.t.Helper()
	f.handle(cg.CreateNodeVariant{ContentStreamID: f.cs, NodeAggregateID: id, SourceOrigin: source, TargetOrigin: target})
}

func (f *fixture) subgraph(dsp cg.DimensionSpacePoint) cg.Subgraph {
	return f.repo.Subgraph(f.cs, dsp)
}

func TestOpen_CreatesLiveWorkspaceOnce(t *testing.T) {
	j := journal.NewMemory()
	f := newFixture(t, j)
	assert.Equal(t, 1, j.Len())
	require.NoError(t, f.repo.Close())

	reopened := newFixture(t, j)
	assert.Equal(t, f.cs, reopened.cs)
	assert.Equal(t, 1, j.Len())
}

func TestOpen_RequiresNodeTypes(t *testing.T) {
	_, err := Open(context.Background(), Options{})
	assert.Error(t, err)
}

func TestHandle_CreateRoot(t *testing.T) {
	f := newFixture(t, nil)
	root := f.createRoot()

	for _, dsp := range []cg.DimensionSpacePoint{en, enUS, de} {
		n, err := f.subgraph(dsp).FindRootNodeByType(f.ctx, typeRoot)
		require.NoError(t, err)
		require.NotNil(t, n, "root visible in %s", dsp)
		assert.Equal(t, root, n.AggregateID)
	}

	_, err := f.repo.Handle(f.ctx, cg.CreateRootNodeAggregateWithNode{
		ContentStreamID: f.cs, NodeAggregateID: cg.NewNodeAggregateID(), NodeTypeName: typeRoot,
	})
	assert.ErrorIs(t, err, cg.ErrRootNodeAggregateExists)
}

func TestHandle_RootBySupertype(t *testing.T) {
	f := newFixture(t, nil)
	root := cg.NewNodeAggregateID()
	f.handle(cg.CreateRootNodeAggregateWithNode{ContentStreamID: f.cs, NodeAggregateID: root, NodeTypeName: typeSpecial})

	n, err := f.subgraph(de).FindRootNodeByType(f.ctx, typeFolder)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, root, n.AggregateID)
	assert.Equal(t, typeSpecial, n.TypeName)

	_, err = f.repo.Handle(f.ctx, cg.CreateRootNodeAggregateWithNode{
		ContentStreamID: f.cs, NodeAggregateID: cg.NewNodeAggregateID(), NodeTypeName: typeFolder,
	})
	assert.ErrorIs(t, err, cg.ErrRootNodeAggregateExists)
}

func TestHandle_Rejections(t *testing.T) {
	f := newFixture(t, nil)
	root := f.createRoot()
	folder := f.create(root, typeFolder, "a", de)

	tests := []struct {
		name string
		cmd  cg.Command
		want error
	}{
		{
			name: "undeclared type",
			cmd:  cg.CreateNodeAggregateWithNode{ContentStreamID: f.cs, NodeAggregateID: "x", NodeTypeName: "Nope", OriginDimensionSpacePoint: de, ParentNodeAggregateID: root},
			want: cg.ErrNodeTypeNotDeclared,
		},
		{
			name: "point not allowed",
			cmd:  cg.CreateNodeAggregateWithNode{ContentStreamID: f.cs, NodeAggregateID: "x", NodeTypeName: typeFolder, OriginDimensionSpacePoint: cg.DimensionSpacePoint{"language": "fr"}, ParentNodeAggregateID: root},
			want: cg.ErrDimensionPointNotAllowed,
		},
		{
			name: "unknown content stream",
			cmd:  cg.CreateNodeAggregateWithNode{ContentStreamID: "other", NodeAggregateID: "x", NodeTypeName: typeFolder, OriginDimensionSpacePoint: de, ParentNodeAggregateID: root},
			want: cg.ErrContentStreamNotFound,
		},
		{
			name: "duplicate aggregate",
			cmd:  cg.CreateNodeAggregateWithNode{ContentStreamID: f.cs, NodeAggregateID: folder, NodeTypeName: typeFolder, OriginDimensionSpacePoint: de, ParentNodeAggregateID: root},
			want: cg.ErrNodeAggregateExists,
		},
		{
			name: "missing parent",
			cmd:  cg.CreateNodeAggregateWithNode{ContentStreamID: f.cs, NodeAggregateID: "x", NodeTypeName: typeFolder, OriginDimensionSpacePoint: de, ParentNodeAggregateID: "missing"},
			want: cg.ErrNodeAggregateNotFound,
		},
		{
			name: "parent not visible",
			cmd:  cg.CreateNodeAggregateWithNode{ContentStreamID: f.cs, NodeAggregateID: "x", NodeTypeName: typeFolder, OriginDimensionSpacePoint: en, ParentNodeAggregateID: folder},
			want: cg.ErrParentNotVisible,
		},
		{
			name: "sibling name taken",
			cmd:  cg.CreateNodeAggregateWithNode{ContentStreamID: f.cs, NodeAggregateID: "x", NodeTypeName: typeFolder, OriginDimensionSpacePoint: en, ParentNodeAggregateID: root, NodeName: "a"},
			want: cg.ErrNodeNameTaken,
		},
		{
			name: "root immutable",
			cmd:  cg.SetNodeProperties{ContentStreamID: f.cs, NodeAggregateID: root, OriginDimensionSpacePoint: de},
			want: cg.ErrRootNodeAggregateImmutable,
		},
		{
			name: "missing variant",
			cmd:  cg.SetNodeProperties{ContentStreamID: f.cs, NodeAggregateID: folder, OriginDimensionSpacePoint: en},
			want: cg.ErrNodeVariantNotFound,
		},
		{
			name: "variant exists",
			cmd:  cg.CreateNodeVariant{ContentStreamID: f.cs, NodeAggregateID: folder, SourceOrigin: de, TargetOrigin: de},
			want: cg.ErrNodeVariantExists,
		},
		{
			name: "empty reference name",
			cmd:  cg.SetNodeReferences{ContentStreamID: f.cs, SourceNodeAggregateID: folder, SourceOrigin: de},
			want: cg.ErrInvalidReferenceName,
		},
		{
			name: "missing reference target",
			cmd:  cg.SetNodeReferences{ContentStreamID: f.cs, SourceNodeAggregateID: folder, SourceOrigin: de, ReferenceName: "r", Targets: []cg.NodeAggregateID{"missing"}},
			want: cg.ErrNodeAggregateNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.repo.Handle(f.ctx, tt.cmd)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, errs.IsInvalid(err), "rejection classified invalid: %v", err)
			assert.False(t, errs.IsFatal(err))
		})
	}
}

func TestHandle_PointerCommands(t *testing.T) {
	f := newFixture(t, nil)
	root := f.createRoot()
	id := cg.NewNodeAggregateID()
	f.handle(&cg.CreateNodeAggregateWithNode{
		ContentStreamID: f.cs, NodeAggregateID: id, NodeTypeName: typeFolder,
		OriginDimensionSpacePoint: de, ParentNodeAggregateID: root, NodeName: "p",
	})
	n, err := f.subgraph(de).FindNodeByID(f.ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, n)
}

func TestHandle_PropertiesAndRename(t *testing.T) {
	f := newFixture(t, nil)
	root := f.createRoot()
	id := f.create(root, typeFolder, "animals", de)

	f.handle(cg.SetNodeProperties{
		ContentStreamID: f.cs, NodeAggregateID: id, OriginDimensionSpacePoint: de,
		Properties: map[string]any{"description": "all of them"},
	})
	f.handle(cg.ChangeNodeAggregateName{ContentStreamID: f.cs, NodeAggregateID: id, NewNodeName: "fauna"})

	n, err := f.subgraph(de).FindNodeByID(f.ctx, id)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, cg.NodeName("fauna"), n.Name)
	assert.Equal(t, "animals de", n.StringProperty("title"), "existing properties are kept")
	assert.Equal(t, "all of them", n.StringProperty("description"))

	// renaming to the current name is a no-op
	res, err := f.repo.Handle(f.ctx, cg.ChangeNodeAggregateName{ContentStreamID: f.cs, NodeAggregateID: id, NewNodeName: "fauna"})
	require.NoError(t, err)
	assert.NoError(t, res.Block(f.ctx))
}

func TestHandle_VariantCoverage(t *testing.T) {
	f := newFixture(t, nil)
	root := f.createRoot()
	id := f.create(root, typeFolder, "animals", en)

	n, err := f.subgraph(enUS).FindNodeByID(f.ctx, id)
	require.NoError(t, err)
	require.NotNil(t, n, "en_US falls back to en")
	assert.True(t, n.OriginDimensionSpacePoint.Equal(en))

	n, err = f.subgraph(de).FindNodeByID(f.ctx, id)
	require.NoError(t, err)
	assert.Nil(t, n)

	f.variant(id, en, de)
	f.variant(id, en, enUS)
	f.handle(cg.SetNodeProperties{
		ContentStreamID: f.cs, NodeAggregateID: id, OriginDimensionSpacePoint: enUS,
		Properties: map[string]any{"title": "critters"},
	})

	n, err = f.subgraph(de).FindNodeByID(f.ctx, id)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, "animals en", n.StringProperty("title"), "variant copies source properties")

	n, err = f.subgraph(enUS).FindNodeByID(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "critters", n.StringProperty("title"))

	n, err = f.subgraph(en).FindNodeByID(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "animals en", n.StringProperty("title"))
}

func TestHandle_RemoveOnlyGivenVariant(t *testing.T) {
	f := newFixture(t, nil)
	root := f.createRoot()
	parent := f.create(root, typeFolder, "animals", en)
	f.variant(parent, en, de)
	child := f.create(parent, typeFolder, "cats", en)
	f.variant(child, en, de)

	f.handle(cg.RemoveNodeAggregate{
		ContentStreamID: f.cs, NodeAggregateID: parent,
		CoveredDimensionSpacePoint: de, Strategy: cg.OnlyGivenVariant,
	})

	for _, id := range []cg.NodeAggregateID{parent, child} {
		n, err := f.subgraph(de).FindNodeByID(f.ctx, id)
		require.NoError(t, err)
		assert.Nil(t, n)
		n, err = f.subgraph(en).FindNodeByID(f.ctx, id)
		require.NoError(t, err)
		assert.NotNil(t, n)
	}
}

func TestHandle_RemoveAllVariants(t *testing.T) {
	f := newFixture(t, nil)
	root := f.createRoot()
	parent := f.create(root, typeFolder, "animals", en)
	f.variant(parent, en, de)
	child := f.create(parent, typeFolder, "cats", de)

	f.handle(cg.RemoveNodeAggregate{ContentStreamID: f.cs, NodeAggregateID: parent, Strategy: cg.AllVariants})

	for _, dsp := range []cg.DimensionSpacePoint{en, enUS, de} {
		for _, id := range []cg.NodeAggregateID{parent, child} {
			n, err := f.subgraph(dsp).FindNodeByID(f.ctx, id)
			require.NoError(t, err)
			assert.Nil(t, n)
		}
	}

	// the name is free again
	f.create(root, typeFolder, "animals", de)
}

func TestReplay_RebuildsGraph(t *testing.T) {
	j := journal.NewMemory()
	f := newFixture(t, j)
	root := f.createRoot()
	a := f.create(root, typeFolder, "a", en)
	f.variant(a, en, de)
	b := f.create(a, typeDocument, "b", de)
	f.handle(cg.SetNodeReferences{
		ContentStreamID: f.cs, SourceNodeAggregateID: b, SourceOrigin: de,
		ReferenceName: "refs", Targets: []cg.NodeAggregateID{a},
	})
	require.NoError(t, f.repo.Close())

	g := newFixture(t, j)
	st, err := g.subgraph(de).FindSubtree(g.ctx, root, cg.FindSubtreeFilter{})
	require.NoError(t, err)
	require.NotNil(t, st)
	require.Len(t, st.Children, 1)
	assert.Equal(t, a, st.Children[0].Node.AggregateID)
	require.Len(t, st.Children[0].Children, 1)
	assert.Equal(t, b, st.Children[0].Children[0].Node.AggregateID)

	refs, err := g.subgraph(de).FindReferences(g.ctx, b, cg.FindReferencesFilter{})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, a, refs[0].Node.AggregateID)
}

func TestClose(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.repo.Close())
	require.NoError(t, f.repo.Close())

	_, err := f.repo.Handle(f.ctx, cg.CreateRootNodeAggregateWithNode{ContentStreamID: f.cs, NodeAggregateID: "r", NodeTypeName: typeRoot})
	assert.ErrorIs(t, err, cg.ErrRepositoryClosed)
	assert.True(t, errs.IsFatal(err))
}

func TestOpen_ReplayFailureIsFatal(t *testing.T) {
	j := journal.NewMemory()
	je, err := encodeEvent(1, &NodePropertiesWereSet{
		ContentStreamID: "gone",
		NodeAggregateID: "x",
		Origin:          de,
		Properties:      map[string]any{"title": "x"},
	}, time.Now())
	require.NoError(t, err)
	require.NoError(t, j.Append(context.Background(), je))

	_, err = Open(context.Background(), Options{NodeTypes: testNodeTypes(t), Variation: testVariation(t), Journal: j})
	require.Error(t, err)
	assert.ErrorIs(t, err, cg.ErrContentStreamNotFound)
	assert.True(t, errs.IsFatal(err))
}

func TestBlock_ContextCancelled(t *testing.T) {
	res := &commandResult{done: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, res.Block(ctx), context.Canceled)
}
