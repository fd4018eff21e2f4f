package ml

import "testing"

func TestRangeTableIsDisjoint(t *testing.T) {
	if err := ValidateRangeTable(RangeTable()); err != nil {
		t.Fatalf("shipped range table invalid: %v", err)
	}
}

func TestValidateRangeTableRejectsOverlap(t *testing.T) {
	table := []RangeSpec{
		{
			Hormone: "cortisol",
			Unit:    "ng/mL",
			Classes: map[string]Interval{
				StatusNormal:     {Low: 4, High: 12},
				StatusBorderline: {Low: 10, High: 20},
				StatusAbnormal:   {Low: 20, High: 50},
			},
		},
	}
	if err := ValidateRangeTable(table); err == nil {
		t.Fatal("expected overlap error")
	}
}

func TestValidateRangeTableRejectsMissingClass(t *testing.T) {
	table := []RangeSpec{
		{
			Hormone: "estrogen",
			Unit:    "pg/mL",
			Classes: map[string]Interval{
				StatusNormal:   {Low: 50, High: 180},
				StatusAbnormal: {Low: 350, High: 1000},
			},
		},
	}
	if err := ValidateRangeTable(table); err == nil {
		t.Fatal("expected missing class error")
	}
}

func TestIntervalContains(t *testing.T) {
	iv := Interval{Low: 4, High: 12}
	if !iv.Contains(4) {
		t.Fatal("low bound should be inclusive")
	}
	if iv.Contains(12) {
		t.Fatal("high bound should be exclusive")
	}
}
