package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cleared-dev/recon/internal/model"
)

// CSVParser reads normalized records with a header row.
//
// Recognized columns, case-insensitive: id, date (or std_date),
// description (desc, std_desc) and amount (amt, std_amt). Without an id
// column the 1-based data row number is used.
type CSVParser struct{}

var csvAliases = map[string]string{
	"id":          "id",
	"record_id":   "id",
	"date":        "date",
	"std_date":    "date",
	"description": "description",
	"desc":        "description",
	"std_desc":    "description",
	"amount":      "amount",
	"amt":         "amount",
	"std_amt":     "amount",
}

// Format returns the parser name.
func (p *CSVParser) Format() string { return "csv" }

// Parse reads a CSV file and returns its records tagged with source.
func (p *CSVParser) Parse(r io.Reader, source model.Source) ([]model.Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if canon, ok := csvAliases[name]; ok {
			cols[canon] = i
		}
	}
	for _, required := range []string{"date", "amount"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("CSV header missing %s column", required)
		}
	}
	cr.FieldsPerRecord = len(header)

	var records []model.Record
	for row := 0; ; row++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row %d: %w", row+1, err)
		}
		rec, err := csvRecord(fields, cols, row, source)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func csvRecord(fields []string, cols map[string]int, row int, source model.Source) (model.Record, error) {
	rec := model.Record{Source: source, ID: strconv.Itoa(row + 1)}
	if i, ok := cols["id"]; ok {
		rec.ID = strings.TrimSpace(fields[i])
	}
	if i, ok := cols["description"]; ok {
		rec.Description = strings.TrimSpace(fields[i])
	}

	date, err := parseDate(fields[cols["date"]])
	if err != nil {
		return model.Record{}, rowError(source, row, rec.ID, "date", err)
	}
	rec.Date = date

	amount, err := parseAmount(fields[cols["amount"]])
	if err != nil {
		return model.Record{}, rowError(source, row, rec.ID, "amount", err)
	}
	rec.Amount = amount
	return rec, nil
}
