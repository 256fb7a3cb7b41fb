//go:build !debug

package ui

import (
	"io/fs"
	"strings"
	"testing"
)

// TestDistFSEmbedded verifies that the landing page is embedded
func TestDistFSEmbedded(t *testing.T) {
	indexData, err := fs.ReadFile(DistFS(), "index.html")
	if err != nil {
		t.Fatalf("Failed to read index.html from embedded filesystem: %v", err)
	}

	content := string(indexData)
	if !strings.Contains(content, "<!DOCTYPE") && !strings.Contains(content, "<html") {
		t.Error("index.html does not appear to be valid HTML (missing DOCTYPE or <html>)")
	}
	if !strings.Contains(content, "/api/v1/directory") {
		t.Error("index.html should load the user directory")
	}
}
