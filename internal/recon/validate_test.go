package recon

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/recon/internal/model"
)

func TestValidateRecords_OK(t *testing.T) {
	records := []model.Record{
		bankRec(t, "1", "2025-01-10", "", "0"),
		bankRec(t, "2", "2025-01-10", "", "-3.00"),
	}
	assert.NoError(t, ValidateRecords(records, model.SourceBank))
	assert.NoError(t, ValidateRecords(nil, model.SourceBank))
}

func TestValidateRecords_Errors(t *testing.T) {
	tests := []struct {
		name    string
		records func(t *testing.T) []model.Record
		field   string
		index   int
		message string
	}{
		{
			name: "empty id",
			records: func(t *testing.T) []model.Record {
				return []model.Record{bankRec(t, "", "2025-01-10", "", "1")}
			},
			field: "id", index: 0, message: "cannot be blank",
		},
		{
			name: "missing date",
			records: func(t *testing.T) []model.Record {
				r := bankRec(t, "1", "2025-01-10", "", "1")
				r.Date = model.Date{}
				return []model.Record{bankRec(t, "0", "2025-01-09", "", "1"), r}
			},
			field: "date", index: 1, message: "cannot be blank",
		},
		{
			name: "wrong source",
			records: func(t *testing.T) []model.Record {
				return []model.Record{ledgerRec(t, "1", "2025-01-10", "", "1")}
			},
			field: "source", index: 0,
		},
		{
			name: "duplicate id",
			records: func(t *testing.T) []model.Record {
				return []model.Record{
					bankRec(t, "7", "2025-01-10", "", "1"),
					bankRec(t, "8", "2025-01-10", "", "1"),
					bankRec(t, "7", "2025-01-11", "", "2"),
				}
			},
			field: "id", index: 2, message: "duplicate of row 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecords(tt.records(t), model.SourceBank)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRecord))

			var rerr *InvalidRecordError
			require.True(t, errors.As(err, &rerr))
			assert.Equal(t, model.SourceBank, rerr.Source)
			assert.Equal(t, tt.field, rerr.Field)
			assert.Equal(t, tt.index, rerr.Index)
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}
}

func TestInvalidRecordError_Message(t *testing.T) {
	err := &InvalidRecordError{Source: model.SourceLedger, Index: 4, ID: "L5", Field: "date", Reason: "cannot be blank"}
	assert.Equal(t, `ledger record "L5" (row 5): date: cannot be blank`, err.Error())

	err = &InvalidRecordError{Source: model.SourceBank, Index: -1, Reason: "unreadable"}
	assert.Equal(t, "bank record: unreadable", err.Error())
}
