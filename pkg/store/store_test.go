package store

import (
	"testing"

	"github.com/google/uuid"
	"github.com/marshallshelly/patient-records/pkg/patient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowValues(t *testing.T) {
	table := patient.AddPatient(patient.Seed(), patient.Patient{Name: "Unknown", Condition: "high blood pressure"})
	id := uuid.New()

	arnab, _ := table.Row(2)
	values := rowValues(id, arnab)
	require.Len(t, values, len(rowColumns))
	assert.Equal(t, id, values[0])
	assert.Equal(t, int32(2), values[1])
	assert.Equal(t, "Arnab", values[2])
	assert.Equal(t, 156.0, *values[3].(*float64))
	assert.Equal(t, 40.5, *values[7].(*float64))
	assert.Equal(t, true, values[8])

	unknown, _ := table.Row(4)
	values = rowValues(id, unknown)
	assert.Nil(t, values[3].(*float64))
	assert.Nil(t, values[4].(*float64))
	assert.Nil(t, values[7].(*float64))
	assert.Equal(t, true, values[8])
}

func TestNullableRoundTrip(t *testing.T) {
	for _, n := range []patient.Number{patient.Num(0), patient.Num(68.5), {}} {
		assert.Equal(t, n, fromNullable(nullable(n)))
	}
}
