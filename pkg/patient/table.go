package patient

import "slices"

// Table is an ordered, immutable collection of records. IDs are always
// 1..N in table order and derived fields always match their source fields.
type Table struct {
	rows []Record
}

// seedPatients is the fixed starting dataset.
var seedPatients = []Patient{
	{Name: "Kapil", Age: Num(105), HeightCM: Num(176), WeightKG: Num(30), Condition: "Kidney fail"},
	{Name: "Arnab", Age: Num(156), HeightCM: Num(149), WeightKG: Num(90), Condition: "High blood pressure"},
	{Name: "Lily", Age: Num(92), HeightCM: Num(168), WeightKG: Num(68), Condition: "Lung infection"},
}

// Seed returns the three-row seed table.
func Seed() Table {
	return FromPatients(seedPatients)
}

// Initial returns the startup table: the seed table with a copy of its first
// patient appended.
func Initial() Table {
	return AddPatient(Seed(), seedPatients[0])
}

// Reset returns a fresh startup table. It is identical to Initial.
func Reset() Table {
	return Initial()
}

// FromPatients builds a table from source fields, numbering rows 1..N in the
// given order. It is also how a bulk edit is applied: the edited rows replace
// the table wholesale.
func FromPatients(ps []Patient) Table {
	rows := make([]Record, len(ps))
	for i, p := range ps {
		rows[i] = derive(i+1, p)
	}
	return Table{rows: rows}
}

// FromRaw builds a table from raw text rows of (name, age, height_cm,
// weight_kg, condition). Numeric fields that do not parse are undefined.
func FromRaw(raw [][]string) Table {
	ps := make([]Patient, len(raw))
	for i, fields := range raw {
		ps[i] = ParseRaw(fields)
	}
	return FromPatients(ps)
}

// Recalculate recomputes BMI and the high-risk flag of every row and
// renumbers the rows. It is idempotent.
func Recalculate(t Table) Table {
	return FromPatients(t.Patients())
}

// AddPatient appends a patient and returns the renumbered, recalculated
// table. The patient is not validated; see Validate.
func AddPatient(t Table, p Patient) Table {
	return FromPatients(append(t.Patients(), p))
}

// Update replaces the source fields of the row with the given ID. It reports
// false and returns t unchanged when no such row exists.
func Update(t Table, id int, p Patient) (Table, bool) {
	if id < 1 || id > len(t.rows) {
		return t, false
	}
	ps := t.Patients()
	ps[id-1] = p
	return FromPatients(ps), true
}

// Remove deletes the row with the given ID and renumbers the rest. It reports
// false and returns t unchanged when no such row exists.
func Remove(t Table, id int) (Table, bool) {
	if id < 1 || id > len(t.rows) {
		return t, false
	}
	ps := t.Patients()
	return FromPatients(slices.Delete(ps, id-1, id)), true
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.rows)
}

// Rows returns a copy of the records in table order.
func (t Table) Rows() []Record {
	return slices.Clone(t.rows)
}

// Row returns the record with the given ID.
func (t Table) Row(id int) (Record, bool) {
	if id < 1 || id > len(t.rows) {
		return Record{}, false
	}
	return t.rows[id-1], true
}

// Patients returns the source fields of every row in table order.
func (t Table) Patients() []Patient {
	ps := make([]Patient, len(t.rows))
	for i, r := range t.rows {
		ps[i] = r.Patient
	}
	return ps
}

// Equal reports whether two tables hold the same records in the same order.
func (t Table) Equal(o Table) bool {
	return slices.EqualFunc(t.rows, o.rows, func(a, b Record) bool {
		return a.ID == b.ID &&
			a.Name == b.Name &&
			a.Age.Equal(b.Age) &&
			a.HeightCM.Equal(b.HeightCM) &&
			a.WeightKG.Equal(b.WeightKG) &&
			a.Condition == b.Condition &&
			a.BMI.Equal(b.BMI) &&
			a.HighRisk == b.HighRisk
	})
}
