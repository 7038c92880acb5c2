package normalize

import "testing"

func TestText_Canonicalization(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Senior Backend Engineer", "senior backend engineer"},
		{"Senior Backend Engineer ", "senior backend engineer"},
		{"  Senior   Backend\tEngineer", "senior backend engineer"},
		{"C++ Developer (Remote)", "c developer remote"},
		{"", ""},
	}

	for _, c := range cases {
		if got := Text(c.in); got != c.want {
			t.Errorf("Text(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestContentHash_Deterministic(t *testing.T) {
	h1 := ContentHash("Senior Backend Engineer", "Acme", "Build things")
	h2 := ContentHash("Senior Backend Engineer ", "Acme", "Build things")

	if h1 != h2 {
		t.Errorf("hash should be stable under trailing whitespace: %s != %s", h1, h2)
	}

	h3 := ContentHash("Senior Backend Engineer", "Acme", "Build other things")
	if h1 == h3 {
		t.Error("hash should change when the description changes")
	}

	h4 := ContentHash("Senior Backend Engineer", "Other Corp", "Build things")
	if h1 == h4 {
		t.Error("hash should change when the company changes")
	}
}

func TestStableID_Stable(t *testing.T) {
	a := StableID("https://acme.com/jobs/1", "Engineer")
	b := StableID("https://acme.com/jobs/1", "Engineer")
	if a != b {
		t.Errorf("StableID not stable: %s != %s", a, b)
	}
	if len(a) != 16 {
		t.Errorf("expected 16-char id, got %d chars", len(a))
	}
	if a == StableID("https://acme.com/jobs/2", "Engineer") {
		t.Error("different URLs must produce different ids")
	}
}

func TestCleanDescription_HTML(t *testing.T) {
	got := CleanDescription("<p>We build <strong>rockets</strong></p>")
	if got == "" {
		t.Fatal("expected non-empty markdown")
	}
	if got[0] == '<' {
		t.Errorf("expected markup stripped, got %q", got)
	}

	plain := CleanDescription("  plain text  ")
	if plain != "plain text" {
		t.Errorf("plain text should be trimmed only, got %q", plain)
	}
}
