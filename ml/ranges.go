package ml

import "fmt"

const (
	StatusNormal     = "Normal"
	StatusBorderline = "Borderline"
	StatusAbnormal   = "Abnormal"
)

// StatusLabels lists every class the engine can assign.
var StatusLabels = []string{StatusNormal, StatusBorderline, StatusAbnormal}

// Interval is a half-open range [Low, High).
type Interval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

func (iv Interval) Contains(v float64) bool {
	return v >= iv.Low && v < iv.High
}

func (iv Interval) Overlaps(other Interval) bool {
	return iv.Low < other.High && other.Low < iv.High
}

func (iv Interval) Width() float64 {
	return iv.High - iv.Low
}

// RangeSpec defines the class-conditioned sampling intervals for one hormone.
type RangeSpec struct {
	Hormone string
	Unit    string
	Classes map[string]Interval
}

// RangeTable returns the saliva hormone reference ranges. Changing these
// invalidates any previously trained artifact set; retrain after editing.
func RangeTable() []RangeSpec {
	return []RangeSpec{
		{
			Hormone: "cortisol",
			Unit:    "ng/mL",
			Classes: map[string]Interval{
				StatusNormal:     {Low: 4.0, High: 12.0},
				StatusBorderline: {Low: 12.0, High: 20.0},
				StatusAbnormal:   {Low: 20.0, High: 50.0},
			},
		},
		{
			Hormone: "estrogen",
			Unit:    "pg/mL",
			Classes: map[string]Interval{
				StatusNormal:     {Low: 50.0, High: 180.0},
				StatusBorderline: {Low: 180.0, High: 350.0},
				StatusAbnormal:   {Low: 350.0, High: 1000.0},
			},
		},
		{
			Hormone: "testosterone",
			Unit:    "ng/dL",
			Classes: map[string]Interval{
				StatusNormal:     {Low: 20.0, High: 70.0},
				StatusBorderline: {Low: 70.0, High: 120.0},
				StatusAbnormal:   {Low: 120.0, High: 300.0},
			},
		},
	}
}

// ValidateRangeTable checks that every hormone defines all three class
// intervals and that the intervals of one hormone are pairwise disjoint.
// Every downstream accuracy claim depends on this holding.
func ValidateRangeTable(table []RangeSpec) error {
	if len(table) == 0 {
		return fmt.Errorf("range table is empty")
	}
	for _, spec := range table {
		for _, label := range StatusLabels {
			iv, ok := spec.Classes[label]
			if !ok {
				return fmt.Errorf("%s: missing interval for class %s", spec.Hormone, label)
			}
			if iv.Width() <= 0 {
				return fmt.Errorf("%s: class %s has non-positive interval [%v, %v)", spec.Hormone, label, iv.Low, iv.High)
			}
		}
		for i, a := range StatusLabels {
			for _, b := range StatusLabels[i+1:] {
				if spec.Classes[a].Overlaps(spec.Classes[b]) {
					return fmt.Errorf("%s: intervals for %s and %s overlap", spec.Hormone, a, b)
				}
			}
		}
	}
	return nil
}
