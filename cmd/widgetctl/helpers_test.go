package main

import (
	"os"
	"path/filepath"
	"testing"
)

const demoConfig = `{
  "name": "Demo",
  "videos": [
    {"id": "intro", "title": "Intro", "src": "https://cdn.example.com/intro.mp4"},
    {"id": "pricing", "title": "Pricing", "src": "https://cdn.example.com/pricing.mp4"}
  ],
  "options": [
    {"id": "intro", "text": "Watch the intro", "action": "playVideo", "payload": "intro"},
    {"id": "more", "text": "Tell me more", "action": "changeOptions", "payload": "more"}
  ],
  "optionSets": {
    "more": [
      {"id": "site", "text": "Visit the site", "action": "openUrl", "payload": "https://example.com"},
      {"id": "pricing", "text": "Pricing", "action": "playVideo", "payload": "pricing"}
    ]
  }
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
