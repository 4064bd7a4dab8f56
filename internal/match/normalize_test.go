package match

import "testing"

func TestStripParens(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain title untouched", input: "Yellow Submarine", want: "Yellow Submarine"},
		{name: "ascii parenthetical removed", input: "Time (Remastered 2011)", want: "Time"},
		{name: "fullwidth parenthetical removed", input: "晴天（周杰伦）", want: "晴天"},
		{name: "multiple parentheticals", input: "Song (Live) (feat. Someone)", want: "Song"},
		{name: "only a parenthetical", input: "(Intro)", want: ""},
		{name: "casing preserved", input: "HUMBLE. (SKIT)", want: "HUMBLE."},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripParens(tt.input); got != tt.want {
				t.Errorf("StripParens(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lowercases", input: "Yellow SUBMARINE", want: "yellow submarine"},
		{name: "strips punctuation", input: "Don't Stop Me Now!", want: "dont stop me now"},
		{name: "collapses whitespace", input: "  a   b  ", want: "a b"},
		{name: "removes parentheticals", input: "Time (Remastered)", want: "time"},
		{name: "keeps cjk letters", input: "晴天", want: "晴天"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTitleSimilarity(t *testing.T) {
	t.Run("identical titles score 1", func(t *testing.T) {
		if got := titleSimilarity("Yellow", "Yellow"); got != 1 {
			t.Errorf("got %f, want 1", got)
		}
	})

	t.Run("parenthetical variants score 1", func(t *testing.T) {
		if got := titleSimilarity("Time (Remastered 2011)", "Time"); got != 1 {
			t.Errorf("got %f, want 1", got)
		}
	})

	t.Run("unrelated titles score low", func(t *testing.T) {
		got := titleSimilarity("Bohemian Rhapsody", "xqzw")
		if got > 0.6 {
			t.Errorf("got %f, want below 0.6", got)
		}
	})

	t.Run("both empty score 1", func(t *testing.T) {
		if got := titleSimilarity("", ""); got != 1 {
			t.Errorf("got %f, want 1", got)
		}
	})

	t.Run("one empty scores 0", func(t *testing.T) {
		if got := titleSimilarity("Yellow", ""); got != 0 {
			t.Errorf("got %f, want 0", got)
		}
	})
}

func TestArtistOverlap(t *testing.T) {
	tests := []struct {
		name   string
		source []string
		target []string
		want   float64
	}{
		{name: "identical single artist", source: []string{"Queen"}, target: []string{"Queen"}, want: 1},
		{name: "case and punctuation ignored", source: []string{"beyoncé"}, target: []string{"Beyoncé"}, want: 1},
		{name: "disjoint", source: []string{"Queen"}, target: []string{"ABBA"}, want: 0},
		{name: "half overlap", source: []string{"A", "B"}, target: []string{"B", "C"}, want: 1.0 / 3.0},
		{name: "both empty", source: nil, target: nil, want: 1},
		{name: "one empty", source: []string{"Queen"}, target: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := artistOverlap(tt.source, tt.target); got != tt.want {
				t.Errorf("artistOverlap(%v, %v) = %f, want %f", tt.source, tt.target, got, tt.want)
			}
		})
	}
}

func TestDurationCloseness(t *testing.T) {
	t.Run("equal durations score 1", func(t *testing.T) {
		if got := durationCloseness(200000, 200000); got != 1 {
			t.Errorf("got %f, want 1", got)
		}
	})

	t.Run("monotonically decreasing with distance", func(t *testing.T) {
		near := durationCloseness(200000, 201000)
		far := durationCloseness(200000, 210000)
		if near <= far {
			t.Errorf("near = %f should exceed far = %f", near, far)
		}
	})

	t.Run("gap beyond window scores 0", func(t *testing.T) {
		if got := durationCloseness(200000, 200000+15000); got != 0 {
			t.Errorf("got %f, want 0", got)
		}
		if got := durationCloseness(200000, 100000); got != 0 {
			t.Errorf("got %f, want 0", got)
		}
	})
}
