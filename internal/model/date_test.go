package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2025-01-10 ")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2025, time.January, 10), d)
	assert.Equal(t, "2025-01-10", d.String())

	_, err = ParseDate("01/10/2025")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parsing date")
}

func TestDate_DaysUntil(t *testing.T) {
	a := NewDate(2025, time.January, 10)
	b := NewDate(2025, time.January, 11)
	assert.Equal(t, 1, a.DaysUntil(b))
	assert.Equal(t, -1, b.DaysUntil(a))
	assert.Equal(t, 0, a.DaysUntil(a))

	// crosses a leap day
	assert.Equal(t, 2, NewDate(2024, time.February, 28).DaysUntil(NewDate(2024, time.March, 1)))
	assert.Equal(t, 1, NewDate(1969, time.December, 31).DaysUntil(NewDate(1970, time.January, 1)))
}

func TestDateOf_DropsClock(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	d := DateOf(time.Date(2025, 1, 10, 23, 30, 0, 0, loc))
	assert.Equal(t, "2025-01-10", d.String())
	assert.True(t, DateOf(time.Time{}).IsZero())
}

func TestDate_JSON(t *testing.T) {
	type doc struct {
		Date Date `json:"date"`
	}
	out, err := json.Marshal(doc{Date: NewDate(2025, time.March, 5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2025-03-05"}`, string(out))

	var in doc
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2025-03-05"}`), &in))
	assert.Equal(t, NewDate(2025, time.March, 5), in.Date)

	require.NoError(t, json.Unmarshal([]byte(`{"date":null}`), &in))
	assert.True(t, in.Date.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"date":"March 5"}`), &in))
}
