package phenotree_test

import (
	"encoding/json"
	"testing"

	"github.com/meikuraledutech/phenotree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frogStages(n int) []phenotree.Stage {
	all := []phenotree.Stage{
		{StageData: phenotree.StageData{Label: "Egg", Stage: "Egg mass", Description: "Jelly-coated eggs laid in water", Timing: "Day 0"}, Transition: "Hatching"},
		{StageData: phenotree.StageData{Label: "Tadpole", Stage: "Early tadpole", Description: "Gilled larva that feeds on algae", Timing: "Week 1"}, Transition: "Hind legs grow"},
		{StageData: phenotree.StageData{Label: "Tadpole with legs", Stage: "Late tadpole", Description: "Hind legs then front legs appear", Timing: "Week 6"}, Transition: "Tail absorbed"},
		{StageData: phenotree.StageData{Label: "Froglet", Stage: "Froglet", Description: "Lungs develop and the tail shrinks", Timing: "Week 10"}, Transition: "Maturation"},
		{StageData: phenotree.StageData{Label: "Young frog", Stage: "Juvenile", Description: "Leaves the water and eats insects", Timing: "Week 14"}, Transition: "Growth"},
		{StageData: phenotree.StageData{Label: "Adult frog", Stage: "Adult", Description: "Sexually mature frog", Timing: "Year 2"}},
	}
	out := append([]phenotree.Stage(nil), all[:n-1]...)
	return append(out, all[len(all)-1])
}

func TestValidateGraph(t *testing.T) {
	tests := []struct {
		name    string
		graph   *phenotree.Graph
		wantErr bool
	}{
		{name: "empty sentinel", graph: ptr(phenotree.Empty())},
		{name: "four nodes", graph: ptr(phenotree.NewPath(frogStages(4)))},
		{name: "five nodes", graph: ptr(phenotree.NewPath(frogStages(5)))},
		{name: "six nodes", graph: ptr(phenotree.NewPath(frogStages(6)))},
		{name: "nil graph", graph: nil, wantErr: true},
		{name: "nil nodes", graph: &phenotree.Graph{Edges: []phenotree.Edge{}}, wantErr: true},
		{name: "nil edges", graph: &phenotree.Graph{Nodes: []phenotree.Node{}}, wantErr: true},
		{name: "three nodes", graph: ptr(phenotree.NewPath(frogStages(3))), wantErr: true},
		{name: "seven nodes", graph: ptr(sevenNodes()), wantErr: true},
		{name: "wrong first role", graph: ptr(withRole(phenotree.NewPath(frogStages(5)), 0, phenotree.RoleIntermediate)), wantErr: true},
		{name: "wrong last role", graph: ptr(withRole(phenotree.NewPath(frogStages(5)), 4, phenotree.RoleStart)), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := phenotree.ValidateGraph(tt.graph)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, phenotree.ErrInvalidGraph)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNewPathLayout(t *testing.T) {
	g := phenotree.NewPath(frogStages(5))

	require.Len(t, g.Nodes, 5)
	require.Len(t, g.Edges, 4)

	for i, n := range g.Nodes {
		idx := i + 1
		assert.Equal(t, phenotree.NodeID(idx), n.ID)
		assert.Equal(t, float64(i*phenotree.YStep), n.Position.Y)
		if idx%2 == 1 {
			assert.Equal(t, float64(phenotree.ColumnOdd), n.Position.X)
		} else {
			assert.Equal(t, float64(phenotree.ColumnEven), n.Position.X)
		}
	}
	assert.Equal(t, phenotree.RoleStart, g.Nodes[0].Role)
	assert.Equal(t, phenotree.RoleIntermediate, g.Nodes[2].Role)
	assert.Equal(t, phenotree.RoleEnd, g.Nodes[4].Role)

	assert.Equal(t, "e1-2", g.Edges[0].ID)
	assert.Equal(t, "n1", g.Edges[0].Source)
	assert.Equal(t, "n2", g.Edges[0].Target)
	for _, e := range g.Edges {
		assert.True(t, e.Animated)
	}
}

func TestGraphJSONShape(t *testing.T) {
	raw, err := json.Marshal(phenotree.Graph{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":[],"edges":[]}`, string(raw))

	g := phenotree.NewPath(frogStages(4))
	raw, err = json.Marshal(g.Nodes[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id":"n1","type":"input","position":{"x":150,"y":0},
		"data":{"label":"Egg","stage":"Egg mass","description":"Jelly-coated eggs laid in water","timing":"Day 0"}
	}`, string(raw))
}

func TestCloneIsIndependent(t *testing.T) {
	g := phenotree.NewPath(frogStages(4))
	c := g.Clone()
	c.Nodes[0].Data.Label = "changed"
	c.Edges[0].Label = "changed"

	assert.Equal(t, "Egg", g.Nodes[0].Data.Label)
	assert.Equal(t, "Hatching", g.Edges[0].Label)
}

func TestLastGraph(t *testing.T) {
	first := phenotree.NewPath(frogStages(4))
	second := phenotree.NewPath(frogStages(5))
	history := []phenotree.Turn{
		phenotree.UserTurn("frog"),
		phenotree.AssistantTurn("made one", &first),
		phenotree.UserTurn("add a stage"),
		phenotree.AssistantTurn("made another", &second),
		phenotree.UserTurn("thanks"),
		phenotree.AssistantTurn("you're welcome", nil),
	}

	assert.Equal(t, 3, phenotree.LastGraphIndex(history))
	assert.Equal(t, &second, phenotree.LastGraph(history))
	assert.Nil(t, phenotree.LastGraph(history[:1]))
	assert.Equal(t, -1, phenotree.LastGraphIndex(nil))
}

func ptr(g phenotree.Graph) *phenotree.Graph { return &g }

func withRole(g phenotree.Graph, i int, r phenotree.Role) phenotree.Graph {
	g.Nodes[i].Role = r
	return g
}

func sevenNodes() phenotree.Graph {
	stages := frogStages(6)
	extra := stages[1]
	stages = append(stages[:2], append([]phenotree.Stage{extra}, stages[2:]...)...)
	return phenotree.NewPath(stages)
}
