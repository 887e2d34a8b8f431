package backends

import (
	"testing"

	liberrors "github.com/lykit/lydiff/internal/errors"
	"github.com/lykit/lydiff/internal/types"
)

func TestSelectPriority(t *testing.T) {
	tests := []struct {
		name  string
		avail map[types.EngineKind]bool
		want  types.EngineKind
	}{
		{
			"all available picks native",
			map[types.EngineKind]bool{types.EngineNative: true, types.EngineKLayout: true, types.EngineBoolean: true},
			types.EngineNative,
		},
		{
			"no native picks klayout",
			map[types.EngineKind]bool{types.EngineKLayout: true, types.EngineBoolean: true},
			types.EngineKLayout,
		},
		{
			"boolean is the last resort",
			map[types.EngineKind]bool{types.EngineBoolean: true},
			types.EngineBoolean,
		},
		{
			"unavailable entries ignored",
			map[types.EngineKind]bool{types.EngineNative: false, types.EngineBoolean: true},
			types.EngineBoolean,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(tt.avail)
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if got.Kind() != tt.want {
				t.Errorf("selected %q, want %q", got.Kind(), tt.want)
			}
		})
	}
}

func TestSelectDeterministic(t *testing.T) {
	avail := map[types.EngineKind]bool{types.EngineNative: true, types.EngineBoolean: true}
	first, err := Select(avail)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := Select(avail)
		if err != nil {
			t.Fatal(err)
		}
		if again.Kind() != first.Kind() {
			t.Fatalf("selection changed between calls: %q vs %q", again.Kind(), first.Kind())
		}
	}
}

func TestSelectNoneAvailable(t *testing.T) {
	_, err := Select(map[types.EngineKind]bool{})
	if !liberrors.IsToolingError(err) {
		t.Fatalf("error = %v, want a tooling error", err)
	}
}

func TestDetectInProcessEngines(t *testing.T) {
	avail := Detect("")
	if !avail[types.EngineNative] {
		t.Error("native engine not detected")
	}
	if !avail[types.EngineBoolean] {
		t.Error("boolean engine not detected")
	}
}

func TestDetectMissingKLayout(t *testing.T) {
	avail := Detect("definitely-not-a-real-binary-name")
	if avail[types.EngineKLayout] {
		t.Error("klayout reported available for a nonexistent binary")
	}
}

func TestRegistry(t *testing.T) {
	for _, kind := range []types.EngineKind{types.EngineNative, types.EngineKLayout, types.EngineBoolean} {
		b, err := Get(kind)
		if err != nil {
			t.Errorf("Get(%q): %v", kind, err)
			continue
		}
		if b.Kind() != kind {
			t.Errorf("Get(%q) returned engine of kind %q", kind, b.Kind())
		}
	}
	if _, err := Get("imaginary"); err == nil {
		t.Error("Get of unregistered kind did not error")
	}
}

func TestListFollowsPriorityOrder(t *testing.T) {
	kinds := List()
	want := []types.EngineKind{types.EngineNative, types.EngineKLayout, types.EngineBoolean}
	if len(kinds) != len(want) {
		t.Fatalf("List() = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("List() = %v, want %v", kinds, want)
		}
	}
}

func TestTierAssertions(t *testing.T) {
	native, _ := Get(types.EngineNative)
	if _, ok := native.(LayerWiseComparer); !ok {
		t.Error("native engine is not layer-wise")
	}
	boolean, _ := Get(types.EngineBoolean)
	if _, ok := boolean.(LayerWiseComparer); !ok {
		t.Error("boolean engine is not layer-wise")
	}
	klayout, _ := Get(types.EngineKLayout)
	if _, ok := klayout.(WholePairComparer); !ok {
		t.Error("klayout engine is not whole-pair")
	}
	if _, ok := klayout.(LayerWiseComparer); ok {
		t.Error("klayout engine claims layer-wise region access it does not have")
	}
}
