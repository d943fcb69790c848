// Package importer loads normalized record sets from disk.
//
// Inputs are the output of an upstream normalizer: one row per transaction
// with an id, a calendar date, a free-text description and a signed amount.
// Raw bank export formats are out of scope.
package importer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/recon/internal/model"
	"github.com/cleared-dev/recon/internal/recon"
)

// Parser converts a record file into normalized Records for one side.
type Parser interface {
	Parse(r io.Reader, source model.Source) ([]model.Record, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a record file in the import directory.
type FileInfo struct {
	Name   string
	Path   string
	Size   int64
	Source model.Source // inferred from the file name, empty if unknown
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// ForPath returns the parser matching path's extension, or nil.
func (r *Registry) ForPath(path string) Parser {
	return r.Get(strings.TrimPrefix(filepath.Ext(path), "."))
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&CSVParser{})
	r.Register(&JSONParser{})
	return r
}

// LoadFile reads path with the parser registered for its extension and tags
// every record with source.
func LoadFile(path string, source model.Source) ([]model.Record, error) {
	return DefaultRegistry().LoadFile(path, source)
}

// LoadFile reads path with the parser registered for its extension.
func (r *Registry) LoadFile(path string, source model.Source) ([]model.Record, error) {
	p := r.ForPath(path)
	if p == nil {
		return nil, fmt.Errorf("no parser for %s", filepath.Base(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s records: %w", source, err)
	}
	defer f.Close()

	records, err := p.Parse(f, source)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", filepath.Base(path), err)
	}
	return records, nil
}

// importDir is the subdirectory for record files awaiting reconciliation.
const importDir = "import"

// processedDir is the subdirectory for reconciled record files.
const processedDir = "import/processed"

// Scan returns the record files in <root>/import/ that a registered parser can read.
// Files whose name starts with "bank" or "ledger" get that Source.
func (r *Registry) Scan(root string) ([]FileInfo, error) {
	dir := filepath.Join(root, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || r.ForPath(e.Name()) == nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name:   e.Name(),
			Path:   filepath.Join(dir, e.Name()),
			Size:   info.Size(),
			Source: sourceOf(e.Name()),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(root, fileName string) error {
	src := filepath.Join(root, importDir, fileName)
	dstDir := filepath.Join(root, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

func sourceOf(name string) model.Source {
	lower := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lower, string(model.SourceBank)):
		return model.SourceBank
	case strings.HasPrefix(lower, string(model.SourceLedger)):
		return model.SourceLedger
	}
	return ""
}

// dateLayouts are tried in order; the first is the canonical wire format.
var dateLayouts = []string{model.DateFormat, "01/02/2006", "2006/01/02", "1/2/2006"}

func parseDate(s string) (model.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.DateOf(t), nil
		}
	}
	return model.Date{}, fmt.Errorf("parsing date %q", s)
}

func parseAmount(s string) (decimal.Decimal, error) {
	clean := strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if strings.HasPrefix(clean, "(") && strings.HasSuffix(clean, ")") {
		clean = "-" + strings.Trim(clean, "()")
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing amount %q", s)
	}
	return d, nil
}

func rowError(source model.Source, index int, id, field string, err error) error {
	return &recon.InvalidRecordError{
		Source: source,
		Index:  index,
		ID:     id,
		Field:  field,
		Reason: err.Error(),
		Err:    err,
	}
}
