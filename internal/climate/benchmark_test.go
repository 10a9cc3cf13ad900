package climate

import (
	"testing"
)

func benchmarkSession(b *testing.B, startYear, endYear int) *Session {
	b.Helper()
	vars := []VariableSeries{tempSeries("tmax", Calendar365Day, startYear, endYear)}
	s, err := NewSession(vars, BaseRange{StartYear: startYear, EndYear: endYear}, DefaultConfig(), nil)
	if err != nil {
		b.Fatal(err)
	}
	return s
}

func BenchmarkComputeQuantiles_TenYearBase(b *testing.B) {
	s := benchmarkSession(b, 1981, 1990)
	values, _ := s.Values("tmax")

	p := QuantileParams{
		Base:               s.Base(),
		WindowN:            5,
		Quantiles:          []float64{0.10, 0.90},
		MinFractionPresent: 0.1,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ComputeQuantiles(values, s.DayOfYear(), s.Years(), 365, p); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkComputeQuantiles_SkipBootstrap(b *testing.B) {
	s := benchmarkSession(b, 1981, 1990)
	values, _ := s.Values("tmax")

	p := QuantileParams{
		Base:               s.Base(),
		WindowN:            5,
		Quantiles:          []float64{0.10, 0.90},
		MinFractionPresent: 0.1,
		SkipBootstrap:      true,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ComputeQuantiles(values, s.DayOfYear(), s.Years(), 365, p); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDailyExceedance(b *testing.B) {
	s := benchmarkSession(b, 1981, 2010)
	values, _ := s.Values("tmax")
	qs, err := s.Quantiles("tmax")
	if err != nil {
		b.Fatal(err)
	}
	thresholds, _ := qs.Outbase(0.90)
	cube, _ := qs.Bootstrap(0.90)

	p := ExceedanceParams{Thresholds: thresholds, Bootstrap: cube, Base: s.Base(), Op: CmpGT}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := DailyExceedance(values, s.DayOfYear(), s.Years(), p); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSpellLengthMax(b *testing.B) {
	s := benchmarkSession(b, 1981, 2010)
	values, _ := s.Values("tmax")
	f := s.Factor(GranularityAnnual)

	p := SpellParams{Threshold: 20, Op: CmpGE, SpansYears: true}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := SpellLengthMax(values, f, p); err != nil {
			b.Fatal(err)
		}
	}
}
