// Package storage defines the vault file-system abstraction for chart documents.
package storage

import (
	"path/filepath"
	"strings"

	"github.com/starford/fehu/internal/models"
)

// Provider is the interface for vault file operations. Paths are relative to
// the vault root.
type Provider interface {
	// List returns metadata for every chart file under dir.
	List(dir string) ([]models.ChartFile, error)
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path.
	Write(path string, content []byte) error
	Delete(path string) error
	Exists(path string) (bool, error)
}

// IsChartFile reports whether name has a chart document extension
// (.yaml or .yml, any case).
func IsChartFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
