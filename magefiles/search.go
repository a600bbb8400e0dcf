//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Search builds the CLI and runs one evidence search for $QUERY, saving the
// record under output/searches/.
func Search() error {
	mg.Deps(Build)

	query := strings.TrimSpace(os.Getenv("QUERY"))
	if query == "" {
		return fmt.Errorf("set QUERY to the question to search for")
	}
	if err := os.MkdirAll("output/searches", 0o755); err != nil {
		return err
	}
	save := filepath.Join("output/searches", time.Now().Format("20060102-150405")+".yaml")
	return sh.RunV(binPath(), "search", "--save", save, query)
}
