package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cg "github.com/sitegeist/taxonomy/contentgraph"
)

// tree builds root > folder "a" > special "b" > document "c" and
// root > document "d", all in de.
func tree(t *testing.T) (*fixture, map[string]cg.NodeAggregateID) {
	f := newFixture(t, nil)
	ids := map[string]cg.NodeAggregateID{"root": f.createRoot()}
	ids["a"] = f.create(ids["root"], typeFolder, "a", de)
	ids["b"] = f.create(ids["a"], typeSpecial, "b", de)
	ids["c"] = f.create(ids["b"], typeDocument, "c", de)
	ids["d"] = f.create(ids["root"], typeDocument, "d", de)
	return f, ids
}

func aggregateIDs(nodes []*cg.Node) []cg.NodeAggregateID {
	out := make([]cg.NodeAggregateID, len(nodes))
	for i, n := range nodes {
		out[i] = n.AggregateID
	}
	return out
}

func TestSubgraph_FindParentAndChildren(t *testing.T) {
	f, ids := tree(t)
	sg := f.subgraph(de)

	parent, err := sg.FindParentNode(f.ctx, ids["b"])
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, ids["a"], parent.AggregateID)

	parent, err = sg.FindParentNode(f.ctx, ids["root"])
	require.NoError(t, err)
	assert.Nil(t, parent)

	children, err := sg.FindChildNodes(f.ctx, ids["root"], cg.FindChildNodesFilter{})
	require.NoError(t, err)
	assert.Equal(t, []cg.NodeAggregateID{ids["a"], ids["d"]}, aggregateIDs(children))

	children, err = sg.FindChildNodes(f.ctx, ids["root"], cg.FindChildNodesFilter{NodeTypes: cg.AllowTypes(typeFolder)})
	require.NoError(t, err)
	assert.Equal(t, []cg.NodeAggregateID{ids["a"]}, aggregateIDs(children))

	// invisible in en
	children, err = f.subgraph(en).FindChildNodes(f.ctx, ids["root"], cg.FindChildNodesFilter{})
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestSubgraph_FindAncestorNodes(t *testing.T) {
	f, ids := tree(t)
	sg := f.subgraph(de)

	all, err := sg.FindAncestorNodes(f.ctx, ids["c"], cg.FindAncestorNodesFilter{})
	require.NoError(t, err)
	assert.Equal(t, []cg.NodeAggregateID{ids["b"], ids["a"], ids["root"]}, aggregateIDs(all))

	folders, err := sg.FindAncestorNodes(f.ctx, ids["c"], cg.FindAncestorNodesFilter{NodeTypes: cg.AllowTypes(typeFolder)})
	require.NoError(t, err)
	assert.Equal(t, []cg.NodeAggregateID{ids["b"], ids["a"]}, aggregateIDs(folders), "subtypes match")

	plain, err := sg.FindAncestorNodes(f.ctx, ids["c"], cg.FindAncestorNodesFilter{
		NodeTypes: cg.NodeTypeCriteria{Allowed: []cg.NodeTypeName{typeFolder}, Disallowed: []cg.NodeTypeName{typeSpecial}},
	})
	require.NoError(t, err)
	assert.Equal(t, []cg.NodeAggregateID{ids["a"]}, aggregateIDs(plain))
}

func TestSubgraph_FindSubtree(t *testing.T) {
	f, ids := tree(t)
	sg := f.subgraph(de)

	st, err := sg.FindSubtree(f.ctx, ids["root"], cg.FindSubtreeFilter{NodeTypes: cg.AllowTypes(typeFolder)})
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, 0, st.Level)
	assert.Equal(t, ids["root"], st.Node.AggregateID, "entry node is included regardless of filter")
	require.Len(t, st.Children, 1)
	assert.Equal(t, 1, st.Children[0].Level)
	require.Len(t, st.Children[0].Children, 1)
	assert.Equal(t, ids["b"], st.Children[0].Children[0].Node.AggregateID)
	assert.Empty(t, st.Children[0].Children[0].Children)

	limited, err := sg.FindSubtree(f.ctx, ids["root"], cg.FindSubtreeFilter{MaxLevels: 1})
	require.NoError(t, err)
	require.Len(t, limited.Children, 2)
	assert.Empty(t, limited.Children[0].Children)

	missing, err := sg.FindSubtree(f.ctx, "missing", cg.FindSubtreeFilter{})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSubgraph_FindNodeByPath(t *testing.T) {
	f, ids := tree(t)
	sg := f.subgraph(de)

	tests := []struct {
		path string
		want cg.NodeAggregateID
	}{
		{"a/b/c", ids["c"]},
		{"/a/b/", ids["b"]},
		{"", ids["root"]},
		{"a/x", ""},
		{"A", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			n, err := sg.FindNodeByPath(f.ctx, cg.ParseNodePath(tt.path), ids["root"])
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, n)
				return
			}
			require.NotNil(t, n)
			assert.Equal(t, tt.want, n.AggregateID)
		})
	}
}

func TestSubgraph_References(t *testing.T) {
	f, ids := tree(t)
	f.handle(cg.SetNodeReferences{
		ContentStreamID: f.cs, SourceNodeAggregateID: ids["d"], SourceOrigin: de,
		ReferenceName: "tags", Targets: []cg.NodeAggregateID{ids["b"], ids["a"]},
	})
	f.handle(cg.SetNodeReferences{
		ContentStreamID: f.cs, SourceNodeAggregateID: ids["c"], SourceOrigin: de,
		ReferenceName: "related", Targets: []cg.NodeAggregateID{ids["a"]},
	})
	sg := f.subgraph(de)

	refs, err := sg.FindReferences(f.ctx, ids["d"], cg.FindReferencesFilter{})
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, ids["b"], refs[0].Node.AggregateID)
	assert.Equal(t, "tags", refs[0].Name)

	refs, err = sg.FindReferences(f.ctx, ids["d"], cg.FindReferencesFilter{NodeTypes: cg.AllowTypes(typeSpecial)})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, ids["b"], refs[0].Node.AggregateID)

	back, err := sg.FindBackReferences(f.ctx, ids["a"], cg.FindBackReferencesFilter{})
	require.NoError(t, err)
	require.Len(t, back, 2)
	assert.Equal(t, ids["c"], back[0].Node.AggregateID, "sources in creation order")
	assert.Equal(t, ids["d"], back[1].Node.AggregateID)

	back, err = sg.FindBackReferences(f.ctx, ids["a"], cg.FindBackReferencesFilter{ReferenceName: "tags"})
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, ids["d"], back[0].Node.AggregateID)

	// replacing references drops the old targets
	f.handle(cg.SetNodeReferences{
		ContentStreamID: f.cs, SourceNodeAggregateID: ids["d"], SourceOrigin: de, ReferenceName: "tags",
	})
	back, err = sg.FindBackReferences(f.ctx, ids["a"], cg.FindBackReferencesFilter{ReferenceName: "tags"})
	require.NoError(t, err)
	assert.Empty(t, back)
}

func TestSubgraph_NodeIdentity(t *testing.T) {
	f, ids := tree(t)
	n, err := f.subgraph(de).FindNodeByID(f.ctx, ids["a"])
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, cg.ContentRepositoryID("test"), n.Subgraph.ContentRepositoryID)
	assert.Equal(t, f.cs, n.Subgraph.ContentStreamID)
	assert.True(t, n.Subgraph.DimensionSpacePoint.Equal(de))

	// mutating a returned node does not leak into the graph
	n.Properties["title"] = "changed"
	again, _ := f.subgraph(de).FindNodeByID(f.ctx, ids["a"])
	assert.Equal(t, "a de", again.StringProperty("title"))
}
