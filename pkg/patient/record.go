// Package patient holds the patient table: records, their derived BMI and
// high-risk flag, and the operations that mutate and query a table.
//
// A Table is a value. Every operation returns a new Table and leaves its
// input untouched, so callers own the "current table" reference and may share
// older values freely.
package patient

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/cases"
)

// highRiskCondition is compared case-folded against Patient.Condition.
const highRiskCondition = "high blood pressure"

// highRiskBMI is the BMI at or above which a patient is high risk.
const highRiskBMI = 30.0

// Patient holds the source fields of a record.
type Patient struct {
	Name      string `json:"name"`
	Age       Number `json:"age"`
	HeightCM  Number `json:"height_cm"`
	WeightKG  Number `json:"weight_kg"`
	Condition string `json:"condition"`
}

// Record is one row of a Table: the patient, its positional ID and the
// fields derived from it.
type Record struct {
	ID int `json:"patient_id"`
	Patient
	BMI      Number `json:"bmi"`
	HighRisk bool   `json:"-"`
}

// MarshalJSON renders the high-risk flag as "Yes"/"No" next to the other
// columns.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	return json.Marshal(struct {
		plain
		HighRisk string `json:"high_risk"`
	}{plain(r), r.RiskLabel()})
}

// RiskLabel renders the high-risk flag as "Yes" or "No".
func (r Record) RiskLabel() string {
	return riskLabel(r.HighRisk)
}

func riskLabel(high bool) string {
	if high {
		return "Yes"
	}
	return "No"
}

// ComputeBMI returns weight / (height in metres)^2 rounded to one decimal.
// It is undefined when either input is undefined or the height is zero.
func ComputeBMI(heightCM, weightKG Number) Number {
	if !heightCM.Valid || !weightKG.Valid || heightCM.Float == 0 {
		return Number{}
	}
	m := heightCM.Float / 100
	return Num(round1(weightKG.Float / (m * m)))
}

// IsHighRisk reports whether a BMI or condition marks a patient as high risk.
func IsHighRisk(bmi Number, condition string) bool {
	if bmi.Valid && bmi.Float >= highRiskBMI {
		return true
	}
	return fold(condition) == highRiskCondition
}

func fold(s string) string {
	return cases.Fold().String(s)
}

// derive fills the derived fields of a record from its source fields.
func derive(id int, p Patient) Record {
	bmi := ComputeBMI(p.HeightCM, p.WeightKG)
	return Record{
		ID:       id,
		Patient:  p,
		BMI:      bmi,
		HighRisk: IsHighRisk(bmi, p.Condition),
	}
}

// ParseRaw coerces one raw row, given as (name, age, height_cm, weight_kg,
// condition) text fields, into a Patient. Missing trailing fields are empty.
func ParseRaw(fields []string) Patient {
	at := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}
	return Patient{
		Name:      at(0),
		Age:       ParseNumber(at(1)),
		HeightCM:  ParseNumber(at(2)),
		WeightKG:  ParseNumber(at(3)),
		Condition: at(4),
	}
}

// Trimmed returns a copy with surrounding whitespace removed from the text
// fields, the way interactive callers clean form input.
func (p Patient) Trimmed() Patient {
	p.Name = strings.TrimSpace(p.Name)
	p.Condition = strings.TrimSpace(p.Condition)
	return p
}
