package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dgallion1/docinsight/internal/pipeline"
)

// Encode writes v as indented JSON without HTML escaping, so headings like "R&D" stay readable.
func Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Write validates v against schema and writes it to dir/name. The file is written to a
// temporary name first and renamed, so readers never see a half-written document.
func Write(dir, name, schema string, v any) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, v); err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	if err := ValidateBytes(schema, buf.Bytes()); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("rename %s: %w", name, err)
	}
	return path, nil
}

// WriteOutlines writes one <stem>.json per document plus outline_report.json. It returns
// the paths written.
func WriteOutlines(dir string, res *pipeline.OutlineResult) ([]string, error) {
	var paths []string
	for _, d := range res.Documents {
		p, err := Write(dir, Stem(d.DocumentID), SchemaOutline, NewOutline(d))
		if err != nil {
			return paths, fmt.Errorf("%s: %w", d.DocumentID, err)
		}
		paths = append(paths, p)
	}
	p, err := Write(dir, OutlineReportFile, SchemaOutlineReport, NewOutlineReport(res))
	if err != nil {
		return paths, err
	}
	return append(paths, p), nil
}

// WriteRanking writes persona_ranking.json.
func WriteRanking(dir string, res *pipeline.RankResult) (string, error) {
	return Write(dir, RankingFile, SchemaRanking, NewRanking(res))
}
