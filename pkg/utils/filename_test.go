package utils

import (
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"My cool movie.mov", "My_cool_movie.mov"},
		{"../../../etc/passwd", "etc_passwd"},
		{"i contain cool \u00fcml\u00e4uts.txt", "i_contain_cool_umlauts.txt"},
		{`C:\Users\me\photo 1.JPG`, "C_Users_me_photo_1.JPG"},
		{"  .hidden.png ", "hidden.png"},
		{"photo<script>.jpg", "photoscript.jpg"},
		{"日本語.png", "png"},
		{"../..", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUniqueName(t *testing.T) {
	taken := map[string]bool{"a.jpg": true, "a_1.jpg": true, "b": true}
	has := func(n string) bool { return taken[n] }

	if got := UniqueName("c.png", has); got != "c.png" {
		t.Errorf("free name changed to %q", got)
	}
	if got := UniqueName("a.jpg", has); got != "a_2.jpg" {
		t.Errorf("UniqueName(a.jpg) = %q, want a_2.jpg", got)
	}
	if got := UniqueName("b", has); got != "b_1" {
		t.Errorf("UniqueName(b) = %q, want b_1", got)
	}
}

func TestGenerateStorageKey(t *testing.T) {
	key := GenerateStorageKey("archives", "batch.zip")
	if !strings.HasPrefix(key, "archives/batch_") || !strings.HasSuffix(key, ".zip") {
		t.Fatalf("unexpected key %q", key)
	}
	if other := GenerateStorageKey("archives", "batch.zip"); other == key {
		t.Fatalf("keys collide: %q", key)
	}
}
