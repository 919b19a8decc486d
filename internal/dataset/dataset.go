package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/metapool/metapool/pkg/types"
)

// columns is the required header, in order.
var columns = []string{"author", "year", "n_tx", "n_cont", "m_tx", "m_cont", "sd_tx", "sd_cont"}

// Load reads the study table at path. Row order is preserved — it is
// the display and summation order for the rest of the pipeline.
func Load(path string) ([]types.Study, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open: %w", err)
	}
	defer f.Close()

	studies, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("dataset: %s: %w", path, err)
	}
	return studies, nil
}

// Read parses a study table from r. The first record must be the
// canonical header.
func Read(r io.Reader) ([]types.Study, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty table: %w", types.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	var studies []types.Study
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		s, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		studies = append(studies, s)
	}

	if len(studies) == 0 {
		return nil, fmt.Errorf("table has a header but no study rows: %w", types.ErrInvalidInput)
	}
	return studies, nil
}

func checkHeader(header []string) error {
	if len(header) != len(columns) {
		return fmt.Errorf("header has %d columns, want %d (%s): %w",
			len(header), len(columns), strings.Join(columns, ","), types.ErrInvalidInput)
	}
	for i, want := range columns {
		if strings.TrimSpace(strings.ToLower(header[i])) != want {
			return fmt.Errorf("header column %d is %q, want %q: %w",
				i+1, header[i], want, types.ErrInvalidInput)
		}
	}
	return nil
}

func parseRow(rec []string) (types.Study, error) {
	var s types.Study
	if len(rec) != len(columns) {
		return s, fmt.Errorf("%d fields, want %d: %w", len(rec), len(columns), types.ErrInvalidInput)
	}

	s.Author = strings.TrimSpace(rec[0])
	if s.Author == "" {
		return s, fmt.Errorf("author is empty: %w", types.ErrInvalidInput)
	}

	var err error
	if s.Year, err = parseInt(rec[1], "year"); err != nil {
		return s, err
	}
	if s.NTx, err = parseInt(rec[2], "n_tx"); err != nil {
		return s, err
	}
	if s.NCont, err = parseInt(rec[3], "n_cont"); err != nil {
		return s, err
	}
	if s.MTx, err = parseFloat(rec[4], "m_tx"); err != nil {
		return s, err
	}
	if s.MCont, err = parseFloat(rec[5], "m_cont"); err != nil {
		return s, err
	}
	if s.SDTx, err = parseFloat(rec[6], "sd_tx"); err != nil {
		return s, err
	}
	if s.SDCont, err = parseFloat(rec[7], "sd_cont"); err != nil {
		return s, err
	}
	return s, nil
}

func parseInt(field, name string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(field))
	if err != nil {
		return 0, fmt.Errorf("%s %q is not an integer: %w", name, field, types.ErrInvalidInput)
	}
	return v, nil
}

func parseFloat(field, name string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not a number: %w", name, field, types.ErrInvalidInput)
	}
	return v, nil
}
