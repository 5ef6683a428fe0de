package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		active EnvSet
		want   Status
	}{
		{
			name:   "fully",
			values: map[string]string{"PRO": "x", "PRE": "x", "TEST": "x"},
			active: NewEnvSet("PRO", "PRE", "TEST"),
			want:   StatusFully,
		},
		{
			name:   "partially",
			values: map[string]string{"PRO": "x", "PRE": "x", "TEST": "y"},
			active: NewEnvSet("PRO", "PRE", "TEST"),
			want:   StatusPartially,
		},
		{
			name:   "unknown when sparse",
			values: map[string]string{"PRO": "x"},
			active: NewEnvSet("PRO", "PRE"),
			want:   StatusUnknown,
		},
		{
			name:   "inconsistent",
			values: map[string]string{"PRO": "x", "PRE": "y", "TEST": "z"},
			active: NewEnvSet("PRO", "PRE", "TEST"),
			want:   StatusInconsistent,
		},
		{
			name:   "equal but missing in an active env is not fully",
			values: map[string]string{"PRO": "x", "PRE": "x"},
			active: NewEnvSet("PRO", "PRE", "TEST"),
			want:   StatusPartially,
		},
		{
			name:   "equal outside PRO and PRE but missing elsewhere",
			values: map[string]string{"TEST": "x", "DEV": "x"},
			active: NewEnvSet("PRO", "TEST", "DEV"),
			want:   StatusInconsistent,
		},
		{
			name:   "inactive values ignored",
			values: map[string]string{"PRO": "x", "PRE": "y", "TEST": "x"},
			active: NewEnvSet("PRO", "TEST"),
			want:   StatusFully,
		},
		{
			name:   "single active environment",
			values: map[string]string{"PRO": "x", "PRE": "x"},
			active: NewEnvSet("PRO"),
			want:   StatusUnknown,
		},
		{
			name:   "no values",
			values: map[string]string{},
			active: NewEnvSet("PRO", "PRE"),
			want:   StatusUnknown,
		},
		{
			name:   "empty string is a value",
			values: map[string]string{"PRO": "", "PRE": ""},
			active: NewEnvSet("PRO", "PRE"),
			want:   StatusFully,
		},
		{
			name:   "PRO PRE differ with others equal",
			values: map[string]string{"PRO": "a", "PRE": "b", "TEST": "b", "DEV": "b"},
			active: NewEnvSet("PRO", "PRE", "TEST", "DEV"),
			want:   StatusInconsistent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.values, tt.active))
		})
	}
}

func TestClassify_Properties(t *testing.T) {
	envs := []string{"PRO", "PRE", "TEST", "DEV"}

	rapid.Check(t, func(rt *rapid.T) {
		active := NewEnvSet()
		values := make(map[string]string)
		for _, env := range envs {
			if rapid.Bool().Draw(rt, env+"_active") {
				active[env] = struct{}{}
			}
			if rapid.Bool().Draw(rt, env+"_present") {
				values[env] = rapid.SampledFrom([]string{"a", "b"}).Draw(rt, env+"_value")
			}
		}

		got := Classify(values, active)

		present := 0
		for env := range values {
			if active.Has(env) {
				present++
			}
		}
		if present <= 1 && got != StatusUnknown {
			rt.Fatalf("expected unknown with %d present values, got %s", present, got)
		}
		if got == StatusFully && present != len(active) {
			rt.Fatalf("fully with %d present of %d active", present, len(active))
		}
		if got == StatusPartially {
			pro, proOK := values["PRO"]
			pre, preOK := values["PRE"]
			if !active.Has("PRO") || !active.Has("PRE") || !proOK || !preOK || pro != pre {
				rt.Fatalf("partially without PRO == PRE: %v active=%v", values, active.Sorted())
			}
		}
	})
}
