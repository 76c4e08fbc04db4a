package loom

import "testing"

func TestValueEquals(t *testing.T) {
	sameMap := map[string]any{"a": 1}
	cases := []struct {
		name string
		a, b any
		want bool
	}{
		{"equal ints", 1, 1, true},
		{"unequal ints", 1, 2, false},
		{"mixed int widths", int(1), int64(1), false},
		{"equal strings", "x", "x", true},
		{"unequal strings", "x", "y", false},
		{"equal bools", true, true, true},
		{"equal floats", 1.5, 1.5, true},
		{"float vs int", 1.0, 1, false},
		{"both nil", nil, nil, true},
		{"nil vs zero", nil, 0, false},
		{"zero vs nil", 0, nil, false},
		{"same map", sameMap, sameMap, true},
		{"deep equal maps", map[string]any{"a": 1}, map[string]any{"a": 1}, true},
		{"differing maps", map[string]any{"a": 1}, map[string]any{"a": 2}, false},
		{"deep equal slices", []any{1, "a"}, []any{1, "a"}, true},
		{"differing slices", []any{1}, []any{2}, false},
		{"equal structs", struct{ N int }{1}, struct{ N int }{1}, true},
	}

	for _, tc := range cases {
		if got := valueEquals(tc.a, tc.b); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestIdentityEquals(t *testing.T) {
	m := map[string]any{"a": 1}
	s := []any{1, 2}
	p := &struct{ N int }{1}
	cases := []struct {
		name string
		a, b any
		want bool
	}{
		{"same map", m, m, true},
		{"deep equal maps differ", map[string]any{"a": 1}, map[string]any{"a": 1}, false},
		{"same slice", s, s, true},
		{"deep equal slices differ", []any{1, 2}, []any{1, 2}, false},
		{"same pointer", p, p, true},
		{"distinct pointers", &struct{ N int }{1}, &struct{ N int }{1}, false},
		{"equal ints", 3, 3, true},
		{"unequal ints", 3, 4, false},
		{"mixed types", 3, "3", false},
		{"both nil", nil, nil, true},
		{"nil vs map", nil, m, false},
	}

	for _, tc := range cases {
		if got := identityEquals(tc.a, tc.b); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
