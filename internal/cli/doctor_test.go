package cli

import "testing"

func TestFirstLine(t *testing.T) {
	cases := map[string]string{
		"single line":        "single line",
		"first\nsecond":      "first",
		"first\nsecond\nthird": "first",
		"":                   "",
	}
	for in, want := range cases {
		if got := firstLine(in); got != want {
			t.Errorf("firstLine(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPlatformHintFor(t *testing.T) {
	if got := platformHintFor("adb"); got != "android" {
		t.Errorf("platformHintFor(adb) = %q, want android", got)
	}
	if got := platformHintFor("xcrun"); got != "ios" {
		t.Errorf("platformHintFor(xcrun) = %q, want ios", got)
	}
}

func TestChecksToMaps(t *testing.T) {
	checks := []checkResult{
		{Name: "adb", Status: "ok", Message: "1.0", Details: "/usr/bin/adb"},
		{Name: "tmux", Status: "warning", Message: "not found"},
	}
	maps := checksToMaps(checks)
	if len(maps) != 2 {
		t.Fatalf("len(maps) = %d, want 2", len(maps))
	}
	if maps[0]["name"] != "adb" || maps[0]["status"] != "ok" {
		t.Errorf("maps[0] = %v", maps[0])
	}
	if maps[1]["message"] != "not found" {
		t.Errorf("maps[1][message] = %v", maps[1]["message"])
	}
}
