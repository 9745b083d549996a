package cache

import (
	"reflect"
	"testing"
)

func fingerprint(v any) uint64 {
	f := newFingerprinter()
	f.value(reflect.ValueOf(v), 0)
	return f.sum()
}

func TestFingerprint_DeepEqualValuesMatch(t *testing.T) {
	tests := []struct {
		name string
		a, b any
	}{
		{"nil", nil, nil},
		{"bool", true, true},
		{"uint", uint8(7), uint8(7)},
		{"complex", complex(1, -0.0), complex(1, 0)},
		{"nested map", map[string][]int{"a": {1}, "b": {2}}, map[string][]int{"b": {2}, "a": {1}}},
		{"pointer to struct", &point{X: 1, Tags: []string{"t"}}, &point{X: 1, Tags: []string{"t"}}},
		{"nil func", (func())(nil), (func())(nil)},
		{"interface slice", []any{1, "a", nil}, []any{1, "a", nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.a, tt.b) {
				t.Fatal("test values must be deep-equal")
			}
			if fingerprint(tt.a) != fingerprint(tt.b) {
				t.Error("deep-equal values fingerprint differently")
			}
		})
	}
}

func TestFingerprint_ShapesDiffer(t *testing.T) {
	pairs := [][2]any{
		{1, "1"},
		{[]int{1, 2}, []int{2, 1}},
		{map[string]int{"a": 1}, map[string]int{"a": 2}},
		{[]int{}, map[int]int{}},
		{point{X: 1}, point{Y: 1}},
		{true, false},
	}
	for _, p := range pairs {
		if fingerprint(p[0]) == fingerprint(p[1]) {
			t.Errorf("fingerprint(%#v) == fingerprint(%#v)", p[0], p[1])
		}
	}
}

func TestFingerprint_ChannelsByIdentity(t *testing.T) {
	a := make(chan int)
	b := make(chan int)
	if fingerprint(a) != fingerprint(a) {
		t.Error("same channel should fingerprint the same")
	}
	if fingerprint(a) == fingerprint(b) {
		t.Error("distinct channels should fingerprint differently")
	}
}
