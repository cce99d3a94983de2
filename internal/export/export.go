// Package export writes scrape records to CSV or YAML files.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lthms/roadmapper/internal/scrape"
)

// ErrNoRecords is returned when there is nothing to export. No file is
// created in that case.
var ErrNoRecords = errors.New("export: no records")

// Format is an output file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (want csv or yaml)", s)
	}
}

// Columns is the CSV header of a plain export.
var Columns = []string{"Category", "Subcategory", "Topic", "Description", "Resources"}

// EnrichedColumns is the CSV header when records carry enrichment.
var EnrichedColumns = append(append([]string{}, Columns...), "TLDR", "Challenge")

// DefaultPath returns dir/roadmap_<name>_<YYYYmmdd_HHMMSS>.<ext>, with
// hyphens in the roadmap name replaced by underscores.
func DefaultPath(dir, roadmap string, f Format, now time.Time) string {
	name := strings.ReplaceAll(roadmap, "-", "_")
	if name == "" {
		name = "roadmap"
	}
	file := fmt.Sprintf("roadmap_%s_%s.%s", name, now.Format("20060102_150405"), f)
	return filepath.Join(dir, file)
}

// WriteCSV writes records with a header row. Every field is quoted.
func WriteCSV(w io.Writer, records []scrape.Record, enriched bool) error {
	bw := bufio.NewWriter(w)

	header := Columns
	if enriched {
		header = EnrichedColumns
	}
	writeRow(bw, header)
	for _, r := range records {
		row := []string{r.Category, r.Subcategory, r.Topic, r.Description, r.Resources}
		if enriched {
			row = append(row, r.TLDR, r.Challenge)
		}
		writeRow(bw, row)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func writeRow(w *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteString("\r\n")
}

// WriteYAML writes records as a YAML sequence.
func WriteYAML(w io.Writer, records []scrape.Record) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return nil
}

// ToFile writes records to path in format f, creating parent directories.
// Enrichment columns are included when any record carries a challenge.
func ToFile(path string, f Format, records []scrape.Record) error {
	if len(records) == 0 {
		slog.Warn("export: no data to export")
		return ErrNoRecords
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer file.Close()

	slog.Info("export: writing", "rows", len(records), "path", path, "format", f)

	switch f {
	case FormatYAML:
		err = WriteYAML(file, records)
	default:
		err = WriteCSV(file, records, Enriched(records))
	}
	if err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	return nil
}

// Enriched reports whether any record carries enrichment.
func Enriched(records []scrape.Record) bool {
	for _, r := range records {
		if r.TLDR != "" || r.Challenge != "" {
			return true
		}
	}
	return false
}
