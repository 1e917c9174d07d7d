package dag

import (
	"reflect"
	"testing"

	"github.com/swingdesk/swingdesk/agent"
)

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	f := okFactory(agent.Output{})

	if err := r.Register("scouting", f); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := r.Register("scouting", f); err == nil {
		t.Fatal("duplicate type should be rejected")
	}
	if err := r.Register("", f); err == nil {
		t.Fatal("empty type name should be rejected")
	}
}

func TestRegistryTypesSorted(t *testing.T) {
	r := NewRegistry()
	f := okFactory(agent.Output{})
	for _, name := range []string{"technical", "scouting", "strategist"} {
		r.MustRegister(name, f)
	}

	want := []string{"scouting", "strategist", "technical"}
	if got := r.Types(); !reflect.DeepEqual(got, want) {
		t.Fatalf("types = %v, want %v", got, want)
	}
}

func TestRegistryBuildPassesNodeConfig(t *testing.T) {
	r := NewRegistry()
	var gotConfig map[string]any
	r.MustRegister("cfg", func(config map[string]any) (agent.Agent, error) {
		gotConfig = config
		return &stubAgent{name: "cfg"}, nil
	})

	g := mustGraph(t, []NodeSpec{
		{ID: "a", Type: "cfg", Config: map[string]any{"top_n": 7}},
	})
	agents, err := r.Build(g)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(agents) != 1 {
		t.Fatalf("agents = %d, want 1", len(agents))
	}
	if gotConfig["top_n"] != 7 {
		t.Fatalf("config = %v, want top_n 7", gotConfig)
	}
}
