package recon

import (
	"errors"
	"sort"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/cleared-dev/recon/internal/model"
)

var errDateRequired = errors.New("cannot be blank")

// ValidateRecords checks one side's records against the input contract:
// non-empty unique ids, the expected source tag and a calendar date.
// The first violation is returned as an *InvalidRecordError.
func ValidateRecords(records []model.Record, source model.Source) error {
	seen := make(map[string]int, len(records))
	for i := range records {
		r := records[i]
		err := validation.ValidateStruct(&r,
			validation.Field(&r.ID, validation.Required),
			validation.Field(&r.Source, validation.Required, validation.In(source)),
			validation.Field(&r.Date, validation.By(func(any) error {
				if r.Date.IsZero() {
					return errDateRequired
				}
				return nil
			})),
		)
		if err != nil {
			return recordError(source, i, r.ID, err)
		}

		if prev, dup := seen[r.ID]; dup {
			return &InvalidRecordError{
				Source: source,
				Index:  i,
				ID:     r.ID,
				Field:  "id",
				Reason: "duplicate of row " + strconv.Itoa(prev+1),
			}
		}
		seen[r.ID] = i
	}
	return nil
}

func recordError(source model.Source, index int, id string, err error) error {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return &InvalidRecordError{Source: source, Index: index, ID: id, Reason: err.Error(), Err: err}
	}
	keys := make([]string, 0, len(verrs))
	for k := range verrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &InvalidRecordError{
		Source: source,
		Index:  index,
		ID:     id,
		Field:  keys[0],
		Reason: verrs[keys[0]].Error(),
		Err:    err,
	}
}
