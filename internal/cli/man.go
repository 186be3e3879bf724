package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra/doc"
)

// GenerateManPages writes one man page per command into outDir. The page
// date is pinned to the build timestamp when one is embedded, so
// regenerating pages from the same binary produces identical files.
func GenerateManPages(outDir string, build BuildInfo) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create man output directory: %w", err)
	}

	root := NewRootCommand(io.Discard, io.Discard, strings.NewReader(""), build)
	header := &doc.GenManHeader{
		Title:   "PPASS",
		Section: "1",
		Source:  "ppass " + build.Version,
		Manual:  "ppass Manual",
	}
	if ts, err := time.Parse(time.RFC3339, build.BuildTime); err == nil {
		header.Date = &ts
	}

	if err := doc.GenManTree(root, header, outDir); err != nil {
		return fmt.Errorf("generate man pages: %w", err)
	}

	return nil
}
