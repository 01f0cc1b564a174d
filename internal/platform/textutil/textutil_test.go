package textutil

import "testing"

func TestClean(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain text untouched", input: "Aarav", want: "Aarav"},
		{name: "script stripped", input: `<script>alert("x")</script>Aarav`, want: "Aarav"},
		{name: "markup stripped", input: "<b>Happy</b> Birthday", want: "Happy Birthday"},
		{name: "whitespace trimmed", input: "  name tag  ", want: "name tag"},
		{name: "empty", input: "", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Clean(tc.input); got != tc.want {
				t.Errorf("Clean(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestCleanMap(t *testing.T) {
	got := CleanMap(map[string]string{
		" name ":  "<i>Aarav</i>",
		"":        "dropped",
		"comment": "<script></script>",
	})
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d: %v", len(got), got)
	}
	if got["name"] != "Aarav" {
		t.Errorf("expected cleaned value, got %q", got["name"])
	}

	if CleanMap(nil) != nil {
		t.Error("expected nil for nil input")
	}
}

func TestTitleCase(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{input: "MUMBAI", want: "Mumbai"},
		{input: "new delhi", want: "New Delhi"},
		{input: "  BANGALORE NORTH ", want: "Bangalore North"},
		{input: "", want: ""},
	}

	for _, tc := range cases {
		if got := TitleCase(tc.input); got != tc.want {
			t.Errorf("TitleCase(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
