package utils

import "testing"

func TestIsPackageName(t *testing.T) {
	cases := map[string]bool{
		"com.example.app":            true,
		" org.fdroid.fdroid ":        true,
		"foundation.e.blisslauncher": true,
		"a.b":                        true,
		"firefox":                    false,
		"com.":                       false,
		".com.example":               false,
		"com.1example":               false,
		"com.example app":            false,
		"":                           false,
	}
	for in, want := range cases {
		if got := IsPackageName(in); got != want {
			t.Errorf("IsPackageName(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetLogLevel(t *testing.T) {
	if err := SetLogLevel("warn"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Log.GetLevel().String() != "warning" {
		t.Fatalf("expected warning level, got %s", Log.GetLevel())
	}
	if err := SetLogLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	_ = SetLogLevel("info")
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("hello world", 6); got != "hello…" {
		t.Fatalf("got %q", got)
	}
}
