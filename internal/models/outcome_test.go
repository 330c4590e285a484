package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitleNumber(t *testing.T) {
	assert.Equal(t, "ABC123/00", TitleNumber(Record{Index: 0}))
	assert.Equal(t, "ABC123/09", TitleNumber(Record{Index: 9}))
	assert.Equal(t, "ABC123/33", TitleNumber(Record{Index: 33}))
	assert.Equal(t, "ABC123/100", TitleNumber(Record{Index: 100}))
}

func TestPopulatedRecordJSON(t *testing.T) {
	rec := Record{Index: 33}
	in := PopulatedRecord{
		Record:  rec,
		Outcome: Error{Record: rec, Message: "Could not find record information online."},
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"index":33,"title_number":"ABC123/33","outcome":"error","error":"Could not find record information online."}`, string(data))

	var out PopulatedRecord
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestPopulatedRecordJSON_UnknownOutcome(t *testing.T) {
	var out PopulatedRecord
	err := json.Unmarshal([]byte(`{"index":1,"outcome":"maybe"}`), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maybe")
}

func TestCredentialsString(t *testing.T) {
	assert.Equal(t, "credentials(anonymous)", Credentials{}.String())
	assert.NotContains(t, Credentials{Token: "s3cret"}.String(), "s3cret")
}
