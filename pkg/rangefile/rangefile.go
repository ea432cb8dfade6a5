// Package rangefile reads range documents. A document is a list of
// {start, end, label} entries stored as YAML, JSON or CSV, optionally inside
// an LZ4 frame (".lz4" suffix). Bounds are seconds or RFC 3339 timestamps.
package rangefile

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Format names a document encoding.
type Format string

// Supported formats. FormatAuto picks one from the file extension.
const (
	FormatAuto Format = "auto"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

const lz4Ext = ".lz4"

// Sentinel errors.
var (
	ErrUnknownFormat   = errors.New("unknown document format")
	ErrSchemaViolation = errors.New("document does not match schema")
	ErrBadBound        = errors.New("bad range bound")
	ErrBadRecord       = errors.New("bad csv record")
)

//go:embed schema.json
var schemaJSON []byte

// Entry is one range read from a document.
type Entry struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end"   yaml:"end"`
	Label string  `json:"label,omitempty" yaml:"label,omitempty"`

	// Line is the 1-based source line for YAML and CSV and the 1-based array
	// position for JSON.
	Line int `json:"line" yaml:"line"`
}

// Document is a decoded file.
type Document struct {
	Source  string
	Format  Format
	Entries []Entry
}

// Options control decoding.
type Options struct {
	Format         Format
	ValidateSchema bool
}

// FormatFromPath derives the format from the extension, looking through a
// trailing ".lz4".
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSuffix(strings.ToLower(path), lz4Ext)))

	switch ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: extension %q of %s", ErrUnknownFormat, ext, path)
	}
}

// Load opens path and decodes it.
func Load(path string, opts Options) (*Document, error) {
	if opts.Format == "" || opts.Format == FormatAuto {
		format, err := FormatFromPath(path)
		if err != nil {
			return nil, err
		}

		opts.Format = format
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open range document: %w", err)
	}
	defer file.Close()

	var r io.Reader = file
	if strings.HasSuffix(strings.ToLower(path), lz4Ext) {
		r = lz4.NewReader(file)
	}

	doc, err := Decode(r, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	doc.Source = path

	return doc, nil
}

// Decode reads a whole document from r. opts.Format must be concrete.
func Decode(r io.Reader, opts Options) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read range document: %w", err)
	}

	var entries []Entry

	switch opts.Format {
	case FormatYAML:
		entries, err = decodeYAML(data, opts.ValidateSchema)
	case FormatJSON:
		entries, err = decodeJSON(data, opts.ValidateSchema)
	case FormatCSV:
		entries, err = decodeCSV(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}

	if err != nil {
		return nil, err
	}

	return &Document{Format: opts.Format, Entries: entries}, nil
}

type rawEntry struct {
	Start bound  `json:"start" yaml:"start"`
	End   bound  `json:"end"   yaml:"end"`
	Label string `json:"label" yaml:"label"`
}

func (re rawEntry) entry(line int) Entry {
	return Entry{Start: float64(re.Start), End: float64(re.End), Label: re.Label, Line: line}
}

func decodeYAML(data []byte, validate bool) ([]Entry, error) {
	if validate {
		var generic any
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}

		if err := validateSchema(gojsonschema.NewGoLoader(generic)); err != nil {
			return nil, err
		}
	}

	var doc struct {
		Ranges []yaml.Node `yaml:"ranges"`
	}

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	entries := make([]Entry, 0, len(doc.Ranges))

	for idx := range doc.Ranges {
		node := &doc.Ranges[idx]

		var raw rawEntry
		if err := node.Decode(&raw); err != nil {
			return nil, fmt.Errorf("range at line %d: %w", node.Line, err)
		}

		entries = append(entries, raw.entry(node.Line))
	}

	return entries, nil
}

func decodeJSON(data []byte, validate bool) ([]Entry, error) {
	if validate {
		if err := validateSchema(gojsonschema.NewBytesLoader(data)); err != nil {
			return nil, err
		}
	}

	var doc struct {
		Ranges []rawEntry `json:"ranges"`
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	entries := make([]Entry, 0, len(doc.Ranges))
	for idx, raw := range doc.Ranges {
		entries = append(entries, raw.entry(idx+1))
	}

	return entries, nil
}

func validateSchema(document gojsonschema.JSONLoader) error {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), document)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSchemaViolation, err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		problems = append(problems, re.String())
	}

	return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(problems, "; "))
}

// decodeCSV reads "start,end[,label]" records. A first record starting with
// the word "start" is a header; lines starting with '#' are comments.
func decodeCSV(data []byte) ([]Entry, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var entries []Entry

	for first := true; ; first = false {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadRecord, err)
		}

		line, _ := reader.FieldPos(0)

		if first && strings.EqualFold(strings.TrimSpace(record[0]), "start") {
			continue
		}

		if len(record) < 2 || len(record) > 3 {
			return nil, fmt.Errorf("%w: line %d: want 2 or 3 fields, got %d", ErrBadRecord, line, len(record))
		}

		start, err := ParseBound(record[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		end, err := ParseBound(record[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		entry := Entry{Start: start, End: end, Line: line}
		if len(record) == 3 {
			entry.Label = strings.TrimSpace(record[2])
		}

		entries = append(entries, entry)
	}

	return entries, nil
}
