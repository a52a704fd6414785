package validation

import "testing"

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantErr  bool
	}{
		{"plain", "readme.md", false},
		{"dots inside", "data..v2.csv", false},
		{"hidden", ".bashrc", false},
		{"empty", "", true},
		{"dot", ".", true},
		{"dotdot", "..", true},
		{"slash", "a/b", true},
		{"backslash", `a\b`, true},
		{"null byte", "a\x00b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.filename)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFilename(%q) error = %v, wantErr %v", tt.filename, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRemotePath(t *testing.T) {
	if err := ValidateRemotePath("/home/alice/report.txt"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateRemotePath("  "); err == nil {
		t.Error("expected error for blank path")
	}
	if err := ValidateRemotePath("/tmp/\x00"); err == nil {
		t.Error("expected error for null byte")
	}
}

func TestIsWithinRemote(t *testing.T) {
	tests := []struct {
		parent, child string
		want          bool
	}{
		{"/data", "/data", true},
		{"/data", "/data/sub/file", true},
		{"/data/", "/data/sub", true},
		{"/data", "/database", false},
		{"/data/sub", "/data", false},
		{"/", "/anything", true},
	}

	for _, tt := range tests {
		if got := IsWithinRemote(tt.parent, tt.child); got != tt.want {
			t.Errorf("IsWithinRemote(%q, %q) = %v, want %v", tt.parent, tt.child, got, tt.want)
		}
	}
}

func TestBaseName(t *testing.T) {
	tests := map[string]string{
		"a/readme.md": "readme.md",
		"/srv/logs/":  "logs",
		"file.txt":    "file.txt",
		"/":           "",
		"":            "",
	}
	for in, want := range tests {
		if got := BaseName(in); got != want {
			t.Errorf("BaseName(%q) = %q, want %q", in, got, want)
		}
	}
}
