// Package annotations loads the precomputed GO biological-process catalog
// and its gene annotation table from curated files. Everything is read at
// startup and immutable afterwards, so the catalog is safe to share across
// request-handling goroutines.
package annotations

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/aopmap/kemapper/internal/core/domain"
)

// GoCatalog implements the candidate catalog port for GO terms.
type GoCatalog struct {
	candidates []domain.Candidate
	genes      map[string]map[string]struct{}
}

func (c *GoCatalog) AllCandidates(ctx context.Context) ([]domain.Candidate, error) {
	return c.candidates, nil
}

func (c *GoCatalog) GenesFor(ctx context.Context, candidateID string) (map[string]struct{}, error) {
	return c.genes[candidateID], nil
}

// Load reads the GO term catalog and the term-to-gene annotation table.
// Both files accept tab-separated text or a curated XLSX workbook; the
// extension decides.
//
// Catalog columns: id, name, definition, synonyms (pipe-separated,
// optional "text;;type" pairs), parents (pipe-separated), part_of
// (pipe-separated). Annotation columns: id, gene symbol.
func Load(catalogPath, annotationsPath string, logger *slog.Logger) (*GoCatalog, error) {
	catalogRows, err := readRows(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("read go catalog: %w", err)
	}
	annotationRows, err := readRows(annotationsPath)
	if err != nil {
		return nil, fmt.Errorf("read go annotations: %w", err)
	}

	catalog := &GoCatalog{
		genes: make(map[string]map[string]struct{}, len(annotationRows)),
	}

	seen := make(map[string]struct{}, len(catalogRows))
	for _, row := range catalogRows {
		if len(row) < 2 {
			continue
		}
		id := strings.TrimSpace(row[0])
		name := strings.TrimSpace(row[1])
		if !strings.HasPrefix(id, "GO:") || name == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		term := domain.GoTermCandidate{ID: id, Name: name}
		if len(row) > 2 {
			term.Definition = strings.TrimSpace(row[2])
		}
		if len(row) > 3 {
			term.Synonyms = parseSynonyms(row[3])
		}
		if len(row) > 4 {
			term.Parents = splitList(row[4])
		}
		if len(row) > 5 {
			term.PartOf = splitList(row[5])
		}
		catalog.candidates = append(catalog.candidates, term)
	}

	for _, row := range annotationRows {
		if len(row) < 2 {
			continue
		}
		id := strings.TrimSpace(row[0])
		symbol := strings.TrimSpace(row[1])
		if !strings.HasPrefix(id, "GO:") || symbol == "" {
			continue
		}
		set, ok := catalog.genes[id]
		if !ok {
			set = make(map[string]struct{}, 8)
			catalog.genes[id] = set
		}
		set[symbol] = struct{}{}
	}

	logger.Info("go catalog loaded",
		"terms", len(catalog.candidates),
		"annotated_terms", len(catalog.genes),
	)
	return catalog, nil
}

func readRows(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return readXLSX(path)
	default:
		return readTSV(path)
	}
}

func readTSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rows := make([][]string, 0, 1024)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rows = append(rows, strings.Split(line, "\t"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}

	// The first row is a header in the curated workbooks.
	if len(rows) > 0 && len(rows[0]) > 0 && !strings.HasPrefix(rows[0][0], "GO:") {
		rows = rows[1:]
	}
	return rows, nil
}

func parseSynonyms(field string) []domain.GoSynonym {
	parts := splitList(field)
	if len(parts) == 0 {
		return nil
	}
	synonyms := make([]domain.GoSynonym, 0, len(parts))
	for _, part := range parts {
		text, kind, found := strings.Cut(part, ";;")
		if !found {
			kind = ""
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		synonyms = append(synonyms, domain.GoSynonym{Text: text, Type: strings.TrimSpace(kind)})
	}
	return synonyms
}

func splitList(field string) []string {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil
	}
	parts := strings.Split(field, "|")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
