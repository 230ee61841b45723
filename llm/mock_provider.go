package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/meikuraledutech/phenotree"
)

// MockProvider answers from a small built-in catalogue of progressions, for
// development without an API key and for tests.
type MockProvider struct {
	mu        sync.Mutex
	available bool
	chunkSize int
}

// NewMockProvider creates a new mock provider that streams in 32-byte chunks.
func NewMockProvider() *MockProvider {
	return &MockProvider{available: true, chunkSize: 32}
}

// IsAvailable returns whether the mock provider is available.
func (m *MockProvider) IsAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// SetAvailable controls whether the mock provider is available (for testing).
func (m *MockProvider) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
}

type mockReply struct {
	ConversationalResponse string           `json:"conversationalResponse"`
	Nodes                  []phenotree.Node `json:"nodes"`
	Edges                  []phenotree.Edge `json:"edges"`
}

// Stream answers the last "New message:" of the prompt.
func (m *MockProvider) Stream(ctx context.Context, req Request, onChunk func(string) error) error {
	if !m.IsAvailable() {
		return fmt.Errorf("mock provider is not available")
	}

	reply := m.reply(lastMessage(req.Prompt))
	raw, err := json.Marshal(reply)
	if err != nil {
		return err
	}

	text := string(raw)
	for len(text) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := min(m.chunkSize, len(text))
		if err := onChunk(text[:n]); err != nil {
			return err
		}
		text = text[n:]
	}
	return nil
}

func lastMessage(prompt string) string {
	const marker = "New message: "
	if i := strings.LastIndex(prompt, marker); i >= 0 {
		return strings.TrimSpace(prompt[i+len(marker):])
	}
	return strings.TrimSpace(prompt)
}

func (m *MockProvider) reply(message string) mockReply {
	msg := strings.ToLower(message)
	for _, entry := range catalogue {
		for _, kw := range entry.keywords {
			if strings.Contains(msg, kw) {
				g := phenotree.NewPath(entry.stages)
				return mockReply{Nodes: g.Nodes, Edges: g.Edges}
			}
		}
	}
	return mockReply{
		ConversationalResponse: "I can draw developmental or evolutionary progressions. Try asking for frog, butterfly, maple or bird stages.",
		Nodes:                  []phenotree.Node{},
		Edges:                  []phenotree.Edge{},
	}
}

type catalogueEntry struct {
	keywords []string
	stages   []phenotree.Stage
}

func stage(label, name, desc, timing, next string) phenotree.Stage {
	return phenotree.Stage{
		StageData:  phenotree.StageData{Label: label, Stage: name, Description: desc, Timing: timing},
		Transition: next,
	}
}

var catalogue = []catalogueEntry{
	{
		keywords: []string{"frog", "tadpole"},
		stages: []phenotree.Stage{
			stage("Egg", "Egg mass", "Clusters of jelly-coated eggs laid in shallow water", "Day 0", "Embryos hatch"),
			stage("Tadpole", "Early tadpole", "Gilled larva with a long tail that grazes on algae", "1-3 weeks", "Hind legs emerge"),
			stage("Legged tadpole", "Late tadpole", "Hind then front legs grow as lungs start forming", "6-9 weeks", "Tail is absorbed"),
			stage("Froglet", "Metamorphosis", "Tail shrinks and the animal begins breathing air", "10-12 weeks", "Reaches maturity"),
			stage("Adult frog", "Adult", "Sexually mature frog living on land and in water", "2-4 years", ""),
		},
	},
	{
		keywords: []string{"butterfly", "caterpillar", "chrysalis"},
		stages: []phenotree.Stage{
			stage("Egg", "Egg", "Tiny egg attached to the underside of a host leaf", "3-7 days", "Larva hatches"),
			stage("Caterpillar", "Larva", "Eats constantly and molts through five instars", "2-3 weeks", "Forms a pupa"),
			stage("Chrysalis", "Pupa", "Body is rebuilt inside a hardened protective case", "1-2 weeks", "Adult ecloses"),
			stage("Butterfly", "Adult", "Winged adult that feeds on nectar and reproduces", "2-4 weeks", ""),
		},
	},
	{
		keywords: []string{"maple", "sapling", "seed"},
		stages: []phenotree.Stage{
			stage("Seed", "Samara", "Winged seed carried by wind from the parent tree", "Autumn", "Germinates"),
			stage("Seedling", "Germination", "Root and first leaves emerge from the seed", "Spring, year 1", "Woody stem forms"),
			stage("Sapling", "Sapling", "Thin woody trunk under one meter tall", "Years 2-5", "Canopy widens"),
			stage("Young tree", "Juvenile", "Fast growth in height before first flowering", "Years 5-20", "Begins seeding"),
			stage("Mature tree", "Mature", "Full canopy that flowers and seeds every year", "30+ years", ""),
		},
	},
	{
		keywords: []string{"bird", "dinosaur", "archaeopteryx"},
		stages: []phenotree.Stage{
			stage("Theropods", "Small theropod dinosaurs", "Bipedal feathered dinosaurs with hollow bones", "~165 Mya", "Wings develop"),
			stage("Archaeopteryx", "Transitional form", "Feathered wings with teeth and a bony tail", "~150 Mya", "Tail shortens"),
			stage("Early birds", "Enantiornithes", "Flying birds with a keeled breastbone", "~130 Mya", "Beaks replace teeth"),
			stage("Modern birds", "Neornithes", "Toothless beaked birds that survived the K-Pg event", "~66 Mya to now", ""),
		},
	},
}
