package prompt_test

import (
	"strings"
	"testing"

	"github.com/meikuraledutech/phenotree"
	"github.com/meikuraledutech/phenotree/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphOf(labels ...string) phenotree.Graph {
	stages := make([]phenotree.Stage, len(labels))
	for i, l := range labels {
		stages[i] = phenotree.Stage{StageData: phenotree.StageData{Label: l, Stage: l, Description: l + " stage", Timing: "t"}, Transition: "next"}
	}
	return phenotree.NewPath(stages)
}

func TestBuildWithoutHistory(t *testing.T) {
	p := prompt.Build("Show frog development", nil, nil)

	assert.True(t, strings.HasPrefix(p, prompt.Rules))
	assert.NotContains(t, p, "Most recent tree data:")
	assert.NotContains(t, p, "Previous conversation:")
	assert.True(t, strings.HasSuffix(p, "New message: Show frog development"))
}

func TestRulesMentionContract(t *testing.T) {
	for _, want := range []string{
		`First node: type "input"`,
		`Last node: type "output"`,
		`Middle nodes: "phenological"`,
		"y diff 100 units",
		"odd nodes x=150, even nodes x=350",
		"edges e1-2 connect n1→n2",
		"4–6 nodes, all edges animated=true",
		"under 100 characters",
		"'conversationalResponse' to empty string",
	} {
		assert.Contains(t, prompt.Rules, want)
	}
}

func TestBuildOrderAndTranscript(t *testing.T) {
	g := graphOf("Egg", "Tadpole", "Froglet", "Adult frog")
	history := []phenotree.Turn{
		phenotree.UserTurn("Show frog development"),
		phenotree.AssistantTurn("Here it is", &g),
		phenotree.UserTurn("thanks"),
		phenotree.AssistantTurn("any time", nil),
	}

	p := prompt.Build("make the tadpole stage longer", history, nil)

	rules := strings.Index(p, prompt.Rules)
	recent := strings.Index(p, "Most recent tree data: ")
	transcript := strings.Index(p, "Previous conversation:\n")
	newMsg := strings.Index(p, "New message: make the tadpole stage longer")
	require.True(t, rules == 0 && rules < recent && recent < transcript && transcript < newMsg, p)

	assert.Contains(t, p, "Human: Show frog development\nAssistant: Here it is\nTree data: {")
	assert.Contains(t, p, "Human: thanks\nAssistant: any time\n\nNew message:")
}

func TestBuildAttachesOnlyMostRecentGraph(t *testing.T) {
	older := graphOf("OldStart", "b", "c", "OldEnd")
	newer := graphOf("NewStart", "b", "c", "d", "NewEnd")
	history := []phenotree.Turn{
		phenotree.UserTurn("first"),
		phenotree.AssistantTurn("one", &older),
		phenotree.UserTurn("second"),
		phenotree.AssistantTurn("two", &newer),
		phenotree.UserTurn("chat"),
		phenotree.AssistantTurn("reply", nil),
	}

	p := prompt.Build("again", history, nil)

	assert.Equal(t, 1, strings.Count(p, "Tree data: "+"{"), "only one transcript graph block")
	assert.NotContains(t, p, "OldStart")
	assert.Contains(t, p, "Assistant: two\nTree data: ")
	assert.Contains(t, p, "Assistant: one\nHuman: second")
}

func TestBuildPrefersExplicitLastGraph(t *testing.T) {
	attached := graphOf("Attached", "b", "c", "z")
	edited := graphOf("Edited", "b", "c", "z")
	history := []phenotree.Turn{
		phenotree.UserTurn("first"),
		phenotree.AssistantTurn("one", &attached),
	}

	p := prompt.Build("next", history, &edited)
	recent := p[strings.Index(p, "Most recent tree data: "):strings.Index(p, "Previous conversation:")]
	assert.Contains(t, recent, "Edited")
	assert.NotContains(t, recent, "Attached")

	empty := phenotree.Empty()
	p = prompt.Build("next", history, &empty)
	recent = p[strings.Index(p, "Most recent tree data: "):strings.Index(p, "Previous conversation:")]
	assert.Contains(t, recent, "Attached")
}

func TestBuildIsDeterministic(t *testing.T) {
	g := graphOf("Seed", "Sapling", "Young tree", "Mature tree")
	history := []phenotree.Turn{
		phenotree.UserTurn("maple"),
		phenotree.AssistantTurn("done", &g),
	}

	a := prompt.Build("add a flowering stage", history, &g)
	b := prompt.Build("add a flowering stage", history, &g)
	assert.Equal(t, a, b)
}

func TestExamples(t *testing.T) {
	assert.Len(t, prompt.Examples, 4)
	assert.Len(t, prompt.ShortExamples, 4)
}
