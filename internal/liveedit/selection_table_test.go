package liveedit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

// testdata/selection.json is the transition table of the selection
// machine. The rendering surface script is checked against the same file
// (see web/surface_test.go), so both sides stay in step.

type tableNode struct {
	Name   string    `json:"name"`
	Level  Level     `json:"level"`
	ID     uuid.UUID `json:"id"`
	Parent string    `json:"parent"`
	Type   string    `json:"type"`
}

type tableEmit struct {
	Type  Type   `json:"type"`
	Level Level  `json:"level"`
	Node  string `json:"node"`
}

type tableStep struct {
	Op          string      `json:"op"`
	Node        string      `json:"node"`
	Interactive bool        `json:"interactive"`
	Emit        []tableEmit `json:"emit"`
	Selected    *string     `json:"selected"`
	Hovered     *string     `json:"hovered"`
	Allowed     *bool       `json:"allowed"`
}

type transitionTable struct {
	Nodes []tableNode `json:"nodes"`
	Cases []struct {
		Name  string      `json:"name"`
		Steps []tableStep `json:"steps"`
	} `json:"cases"`
}

func loadTransitionTable(t *testing.T) (transitionTable, map[string]tableNode) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "selection.json"))
	if err != nil {
		t.Fatalf("read transition table: %v", err)
	}
	var table transitionTable
	if err := json.Unmarshal(data, &table); err != nil {
		t.Fatalf("decode transition table: %v", err)
	}
	byName := make(map[string]tableNode, len(table.Nodes))
	for _, n := range table.Nodes {
		byName[n.Name] = n
	}
	return table, byName
}

func emitted(m Message) (Level, uuid.UUID) {
	switch p := m.Payload.(type) {
	case Hover:
		return p.Level, p.ID
	case Select:
		return p.Level, p.ID
	}
	return "", uuid.Nil
}

func TestSelectionTransitionTable(t *testing.T) {
	table, byName := loadTransitionTable(t)

	node := func(name string) Node {
		n := byName[name]
		out := Node{Level: n.Level, ID: n.ID, Type: n.Type}
		if n.Level == LevelWidget {
			out.Parent = byName[n.Parent].ID
		}
		return out
	}
	// path lists the nodes from the page down to name, as the pointer
	// crosses them.
	path := func(name string) []Node {
		var p []Node
		for name != "" {
			p = append([]Node{node(name)}, p...)
			name = byName[name].Parent
		}
		return p
	}
	idOf := func(name string) uuid.UUID {
		if name == "" {
			return uuid.Nil
		}
		return byName[name].ID
	}

	for _, tc := range table.Cases {
		t.Run(tc.Name, func(t *testing.T) {
			var s Selection
			for i, step := range tc.Steps {
				var got []Message
				switch step.Op {
				case "enter":
					got = s.Enter(path(step.Node))
				case "click":
					got = s.Click(path(step.Node), step.Interactive)
				case "leave":
					got = s.Leave()
				case "escape":
					got = s.Escape()
				case "dragstart":
					n := byName[step.Node]
					allowed := s.Affordance().Allows(n.Level, idOf(n.Parent))
					if step.Allowed != nil && allowed != *step.Allowed {
						t.Errorf("step %d: dragging %s allowed = %v, want %v", i, step.Node, allowed, *step.Allowed)
					}
				default:
					t.Fatalf("step %d: unknown op %q", i, step.Op)
				}

				if len(got) != len(step.Emit) {
					t.Fatalf("step %d (%s %s): emitted %v, want %d messages", i, step.Op, step.Node, types(got), len(step.Emit))
				}
				for j, want := range step.Emit {
					level, id := emitted(got[j])
					if got[j].Type != want.Type || level != want.Level || id != idOf(want.Node) {
						t.Errorf("step %d message %d = %s %s %s, want %s %s %s",
							i, j, got[j].Type, level, id, want.Type, want.Level, want.Node)
					}
				}
				if step.Selected != nil && s.Selected().ID != idOf(*step.Selected) {
					t.Errorf("step %d: selected %s, want %q", i, s.Selected().ID, *step.Selected)
				}
				if step.Hovered != nil && s.Hovered().ID != idOf(*step.Hovered) {
					t.Errorf("step %d: hovered %s, want %q", i, s.Hovered().ID, *step.Hovered)
				}
			}
		})
	}
}
