//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// KnowledgeImport imports every YAML article file under knowledge/import/.
func KnowledgeImport() error {
	mg.Deps(Build)

	files, err := filepath.Glob("knowledge/import/*.yaml")
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No article files in knowledge/import/.")
		return nil
	}
	args := append([]string{"knowledge", "import"}, files...)
	return sh.RunV(binPath(), args...)
}
