package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"streamd/internal/common/fsutil"
	"streamd/pkg/types"
)

var (
	quantPattern  = regexp.MustCompile(`(?i)^(?:i?q\d[a-z0-9_]*|f16|f32|bf16)$`)
	familyPattern = regexp.MustCompile(`^[A-Za-z]+`)
)

// GGUFScanner discovers *.gguf model files in a directory.
type GGUFScanner struct{}

func NewGGUFScanner() *GGUFScanner { return &GGUFScanner{} }

// Scan lists *.gguf files (case-insensitive) sorted by ID. The ID is the
// file name; name, quantization and family are parsed from it.
func (s *GGUFScanner) Scan(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".gguf") {
			continue
		}
		m := Describe(e.Name())
		m.Path = filepath.Join(abs, e.Name())
		if info, err := e.Info(); err == nil {
			m.SizeBytes = info.Size()
		}
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// LoadDir scans dir with a GGUFScanner.
func LoadDir(dir string) ([]types.Model, error) { return NewGGUFScanner().Scan(dir) }

// Describe derives model metadata from a file name such as
// "Llama-3.2-1B-Instruct-Q4_K_M.gguf".
func Describe(file string) types.Model {
	stem := file[:len(file)-len(filepath.Ext(file))]
	m := types.Model{ID: file, Name: stem}
	parts := strings.FieldsFunc(stem, func(r rune) bool { return r == '-' || r == '.' })
	if n := len(parts); n > 1 && quantPattern.MatchString(parts[n-1]) {
		m.Quant = strings.ToUpper(parts[n-1])
		m.Name = strings.TrimRight(stem[:len(stem)-len(parts[n-1])], "-.")
	}
	if len(parts) > 0 {
		m.Family = strings.ToLower(familyPattern.FindString(parts[0]))
	}
	return m
}
