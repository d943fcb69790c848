package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/cleared-dev/recon/internal/model"
)

// JSONParser reads an array of {id, date, description, amount} objects.
// Amounts may be JSON numbers or strings.
type JSONParser struct{}

type jsonRecord struct {
	ID          json.RawMessage `json:"id"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      json.RawMessage `json:"amount"`
}

// Format returns the parser name.
func (p *JSONParser) Format() string { return "json" }

// Parse decodes a JSON array and returns its records tagged with source.
func (p *JSONParser) Parse(r io.Reader, source model.Source) ([]model.Record, error) {
	var raw []jsonRecord
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding JSON records: %w", err)
	}

	records := make([]model.Record, 0, len(raw))
	for i, jr := range raw {
		id := unquote(jr.ID)
		if len(jr.ID) == 0 {
			id = strconv.Itoa(i + 1)
		}
		date, err := parseDate(jr.Date)
		if err != nil {
			return nil, rowError(source, i, id, "date", err)
		}
		amount, err := parseAmount(unquote(jr.Amount))
		if err != nil {
			return nil, rowError(source, i, id, "amount", err)
		}
		records = append(records, model.Record{
			ID:          id,
			Source:      source,
			Date:        date,
			Description: jr.Description,
			Amount:      amount,
		})
	}
	return records, nil
}

// unquote turns a raw JSON string or number into its text form.
func unquote(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if string(raw) == "null" {
		return ""
	}
	return string(raw)
}
