package inputters

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Dataset meta files are comma separated with single-quote quoting. The
// reader swaps the two quote characters on the way in and back on the way
// out, so encoding/csv handles the quoting rules.
var swapQuotes = strings.NewReplacer(`'`, `"`, `"`, `'`)

type swapReader struct {
	r *bufio.Reader
}

func (s swapReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	for i := range p[:n] {
		switch p[i] {
		case '\'':
			p[i] = '"'
		case '"':
			p[i] = '\''
		}
	}
	return n, err
}

// readMeta parses one meta file. Blank lines are skipped and rows may have
// any number of fields.
func readMeta(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open dataset meta file '%s': %w", path, err)
	}
	defer f.Close()
	return parseMeta(f, path)
}

func parseMeta(r io.Reader, path string) ([][]string, error) {
	cr := csv.NewReader(swapReader{r: bufio.NewReader(r)})
	cr.Comma = ','
	cr.FieldsPerRecord = -1

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse dataset meta file '%s': %w", path, err)
		}
		for i := range rec {
			rec[i] = swapQuotes.Replace(rec[i])
		}
		rows = append(rows, rec)
	}
}

// resolveRow makes the first n fields of a row absolute against the
// directory of the meta file.
func resolveRow(meta string, row []string, n int) ([]string, error) {
	if len(row) < n {
		return nil, fmt.Errorf("dataset meta file '%s': row %q has %d fields, want %d", meta, row, len(row), n)
	}
	dir := filepath.Dir(meta)
	out := make([]string, n)
	for i := range n {
		p := strings.TrimSpace(row[i])
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		out[i] = p
	}
	return out, nil
}
