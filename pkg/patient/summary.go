package patient

// Summary aggregates a table for display.
type Summary struct {
	Total      int    `json:"total_patients"`
	HighRisk   int    `json:"high_risk_patients"`
	AverageBMI Number `json:"average_bmi"`
}

// Summarize counts patients and high-risk patients and averages the defined
// BMIs, rounded to one decimal. AverageBMI is undefined when no row has a BMI.
func Summarize(t Table) Summary {
	s := Summary{Total: len(t.rows)}
	var sum float64
	var n int
	for _, r := range t.rows {
		if r.HighRisk {
			s.HighRisk++
		}
		if r.BMI.Valid {
			sum += r.BMI.Float
			n++
		}
	}
	if n > 0 {
		s.AverageBMI = Num(round1(sum / float64(n)))
	}
	return s
}
