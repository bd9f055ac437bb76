package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	financeErrors "github.com/sebuszqo/FinanceTracker/internal/finance/errors"
	"github.com/xuri/excelize/v2"
)

// DefaultMaxFileSize matches the upload limit of the import endpoint.
const DefaultMaxFileSize int64 = 5 << 20

// Row maps a header, as written in the file, to the cell value.
type Row map[string]string

// Table is a parsed statement: headers in file order plus one Row per data line.
type Table struct {
	Headers []string
	Rows    []Row
}

// Parse reads a delimited-text or spreadsheet statement. The first row holds the headers.
func Parse(data []byte, filename string, maxBytes int64) (*Table, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileSize
	}
	if int64(len(data)) > maxBytes {
		return nil, financeErrors.ErrFileTooLarge
	}

	var records [][]string
	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		records, err = readCSV(data)
	case ".xlsx":
		records, err = readXLSX(data)
	default:
		return nil, financeErrors.ErrUnsupportedFileFormat
	}
	if err != nil {
		return nil, err
	}

	return buildTable(records)
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, financeErrors.NewValidationError(fmt.Sprintf("Failed to parse CSV file: %v", err))
		}
		records = append(records, record)
	}
	return records, nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, financeErrors.NewValidationError(fmt.Sprintf("Failed to parse Excel file: %v", err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, financeErrors.ErrEmptyFile
	}
	// raw values keep date cells as serial numbers instead of locale formatted text
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, financeErrors.NewValidationError(fmt.Sprintf("Failed to read Excel sheet: %v", err))
	}
	return rows, nil
}

func buildTable(records [][]string) (*Table, error) {
	if len(records) < 2 {
		return nil, financeErrors.ErrEmptyFile
	}

	headers := make([]string, len(records[0]))
	for i, header := range records[0] {
		headers[i] = strings.TrimSpace(header)
	}

	table := &Table{Headers: headers}
	for _, record := range records[1:] {
		if isBlank(record) {
			continue
		}
		row := make(Row, len(headers))
		for i, header := range headers {
			if header == "" || i >= len(record) {
				continue
			}
			row[header] = strings.TrimSpace(record[i])
		}
		table.Rows = append(table.Rows, row)
	}
	if len(table.Rows) == 0 {
		return nil, financeErrors.ErrEmptyFile
	}
	return table, nil
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Lookup returns the first non-empty value among the candidate columns, matching headers case-insensitively.
func (r Row) Lookup(candidates ...string) string {
	for _, candidate := range candidates {
		for header, value := range r {
			if value != "" && strings.EqualFold(header, candidate) {
				return value
			}
		}
	}
	return ""
}
