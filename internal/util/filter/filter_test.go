package filter

import (
	"reflect"
	"testing"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		config Config
		want   bool
	}{
		{"empty config", "a.txt", Config{}, true},
		{"include hit", "run.dat", Config{Include: []string{"*.txt", "*.dat"}}, true},
		{"include miss", "run.log", Config{Include: []string{"*.txt", "*.dat"}}, false},
		{"exclude wins", "debug.dat", Config{Include: []string{"*.dat"}, Exclude: []string{"debug*"}}, false},
		{"search all terms", "Final_Results.csv", Config{Search: []string{"results", "final"}}, true},
		{"search missing term", "results.csv", Config{Search: []string{"results", "final"}}, false},
		{"malformed pattern", "a.txt", Config{Include: []string{"[a"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.file, tt.config); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.file, got, tt.want)
			}
		})
	}
}

func TestApplyKeepsDirectories(t *testing.T) {
	type item struct {
		name string
		dir  bool
	}
	items := []item{{"logs", true}, {"a.txt", false}, {"b.dat", false}}
	got := Apply(items, Config{Include: []string{"*.dat"}},
		func(i item) string { return i.name },
		func(i item) bool { return i.dir })

	want := []item{{"logs", true}, {"b.dat", false}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Apply() = %v, want %v", got, want)
	}
}

func TestParsePatternList(t *testing.T) {
	if got := ParsePatternList(""); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
	got := ParsePatternList(" *.dat, ,*.txt ")
	want := []string{"*.dat", "*.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParsePatternList() = %v, want %v", got, want)
	}
}
