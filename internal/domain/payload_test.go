package domain

import (
	"encoding/json"
	"testing"
)

func TestLooseBoolTruthiness(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want bool
	}{
		{"true literal", `true`, true},
		{"false literal", `false`, false},
		{"null", `null`, false},
		{"zero", `0`, false},
		{"nonzero number", `2`, true},
		{"empty string", `""`, false},
		{"plain string", `"yes"`, true},
		{"string false", `"false"`, true},
		{"string zero", `"0"`, true},
		{"object", `{"a":1}`, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var b LooseBool
			if err := json.Unmarshal([]byte(tc.raw), &b); err != nil {
				t.Fatalf("unmarshal %s: %v", tc.raw, err)
			}
			if bool(b) != tc.want {
				t.Errorf("LooseBool(%s) = %v, want %v", tc.raw, bool(b), tc.want)
			}
		})
	}
}

func TestLooseStringListWrapsSingleString(t *testing.T) {
	var list LooseStringList
	if err := json.Unmarshal([]byte(`"http://x/one.png"`), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 1 || list[0] != "http://x/one.png" {
		t.Errorf("list = %v, want one-element wrap", list)
	}
}
