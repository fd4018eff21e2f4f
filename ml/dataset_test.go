package ml

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"
)

func TestGenerateCorpusCountAndBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	corpus, err := GenerateCorpus(500, DefaultRatios(), rng)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(corpus) != 500 {
		t.Fatalf("expected 500 samples, got %d", len(corpus))
	}

	table := RangeTable()
	for i, sample := range corpus {
		values := sample.Vector()
		for j, spec := range table {
			iv := spec.Classes[sample.Status]
			if !iv.Contains(values[j]) {
				t.Fatalf("sample %d: %s=%v outside %s interval [%v, %v)",
					i, spec.Hormone, values[j], sample.Status, iv.Low, iv.High)
			}
		}
	}
}

func TestGenerateCorpusClassBalance(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ratios := DefaultRatios()
	corpus, err := GenerateCorpus(10000, ratios, rng)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	counts := make(map[string]float64)
	for _, sample := range corpus {
		counts[sample.Status]++
	}
	n := float64(len(corpus))
	checks := map[string]float64{
		StatusNormal:     ratios.Normal,
		StatusBorderline: ratios.Borderline,
		StatusAbnormal:   ratios.Abnormal,
	}
	for label, want := range checks {
		got := counts[label] / n
		if math.Abs(got-want) > 0.02 {
			t.Fatalf("%s proportion %.4f deviates from %.2f by more than 2%%", label, got, want)
		}
	}
}

func TestGenerateCorpusRejectsBadConfig(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	if _, err := GenerateCorpus(0, DefaultRatios(), rng); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for n=0, got %v", err)
	}
	if _, err := GenerateCorpus(10, ClassRatios{Normal: 0.5, Borderline: 0.3, Abnormal: 0.3}, rng); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for ratios summing to 1.1, got %v", err)
	}
	if _, err := GenerateCorpus(10, ClassRatios{Normal: 1.2, Borderline: -0.2, Abnormal: 0}, rng); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for negative ratio, got %v", err)
	}
}

func TestGenerateCorpusReproducible(t *testing.T) {
	a, err := GenerateCorpus(100, DefaultRatios(), rand.New(rand.NewSource(99)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := GenerateCorpus(100, DefaultRatios(), rand.New(rand.NewSource(99)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs across equal seeds: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestWriteCorpusCSV(t *testing.T) {
	corpus := []LabeledSample{
		{HormoneSample: HormoneSample{Cortisol: 7, Estrogen: 100, Testosterone: 40}, Status: StatusNormal},
		{HormoneSample: HormoneSample{Cortisol: 45, Estrogen: 900, Testosterone: 180}, Status: StatusAbnormal},
	}
	var buf bytes.Buffer
	if err := WriteCorpusCSV(&buf, corpus); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "cortisol,estrogen,testosterone,status" {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if !strings.HasSuffix(lines[2], StatusAbnormal) {
		t.Fatalf("expected %s row, got %s", StatusAbnormal, lines[2])
	}
}
