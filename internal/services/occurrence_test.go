package services

import (
	"testing"

	"finanzas/internal/core"
)

func TestDailyAdvancer(t *testing.T) {
	tests := []struct {
		name    string
		current string
		want    string
	}{
		{"mid month", "2025-03-10", "2025-03-11"},
		{"month boundary", "2025-01-31", "2025-02-01"},
		{"year boundary", "2025-12-31", "2026-01-01"},
		{"into leap day", "2024-02-28", "2024-02-29"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DailyAdvancer{}.Next(date(tt.current), date(tt.current))
			if got.String() != tt.want {
				t.Errorf("Next(%s) = %s, want %s", tt.current, got, tt.want)
			}
		})
	}
}

func TestWeeklyAdvancer(t *testing.T) {
	tests := []struct {
		name    string
		current string
		want    string
	}{
		{"same month", "2025-03-03", "2025-03-10"},
		{"month boundary", "2025-03-28", "2025-04-04"},
		{"year boundary", "2025-12-29", "2026-01-05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeeklyAdvancer{}.Next(date(tt.current), date(tt.current))
			if got.String() != tt.want {
				t.Errorf("Next(%s) = %s, want %s", tt.current, got, tt.want)
			}
		})
	}
}

func TestBiweeklyAdvancer(t *testing.T) {
	tests := []struct {
		name    string
		current string
		want    string
	}{
		{"fixed fifteen days", "2025-03-01", "2025-03-16"},
		{"month boundary", "2025-01-20", "2025-02-04"},
		{"february non leap", "2025-02-14", "2025-03-01"},
		{"february leap", "2024-02-14", "2024-02-29"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BiweeklyAdvancer{}.Next(date(tt.current), date(tt.current))
			if got.String() != tt.want {
				t.Errorf("Next(%s) = %s, want %s", tt.current, got, tt.want)
			}
		})
	}
}

func TestMonthlyAdvancer(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		current string
		want    string
	}{
		{"plain day", "2025-03-15", "2025-03-15", "2025-04-15"},
		{"clamp jan 31 to feb 28", "2025-01-31", "2025-01-31", "2025-02-28"},
		{"clamp jan 31 to feb 29 leap", "2024-01-31", "2024-01-31", "2024-02-29"},
		{"return to 31 after clamp", "2025-01-31", "2025-02-28", "2025-03-31"},
		{"clamp 31 to april 30", "2025-01-31", "2025-03-31", "2025-04-30"},
		{"day 30 clamped in february", "2025-01-30", "2025-01-30", "2025-02-28"},
		{"december wraps to january", "2025-11-15", "2025-12-15", "2026-01-15"},
		{"december 31 wraps", "2025-01-31", "2025-12-31", "2026-01-31"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MonthlyAdvancer{}.Next(date(tt.start), date(tt.current))
			if got.String() != tt.want {
				t.Errorf("Next(start %s, current %s) = %s, want %s", tt.start, tt.current, got, tt.want)
			}
		})
	}
}

// A monthly template anchored on the 31st must not drift to the 28th
// permanently after passing through February.
func TestMonthlyAdvancerReclampsFromAnchor(t *testing.T) {
	start := date("2025-01-31")
	want := []string{"2025-02-28", "2025-03-31", "2025-04-30", "2025-05-31", "2025-06-30", "2025-07-31"}

	current := start
	for i, w := range want {
		current = MonthlyAdvancer{}.Next(start, current)
		if current.String() != w {
			t.Fatalf("occurrence %d = %s, want %s", i+1, current, w)
		}
	}
}

func TestYearlyAdvancer(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		current string
		want    string
	}{
		{"plain anniversary", "2023-06-10", "2025-06-10", "2026-06-10"},
		{"feb 29 to non leap", "2024-02-29", "2024-02-29", "2025-02-28"},
		{"feb 29 stays clamped", "2024-02-29", "2026-02-28", "2027-02-28"},
		{"feb 29 restored on leap year", "2024-02-29", "2027-02-28", "2028-02-29"},
		{"december 31", "2024-12-31", "2024-12-31", "2025-12-31"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := YearlyAdvancer{}.Next(date(tt.start), date(tt.current))
			if got.String() != tt.want {
				t.Errorf("Next(start %s, current %s) = %s, want %s", tt.start, tt.current, got, tt.want)
			}
		})
	}
}

func TestGetOccurrenceAdvancer(t *testing.T) {
	for _, freq := range []core.Frequency{core.Daily, core.Weekly, core.Biweekly, core.Monthly, core.Yearly} {
		advancer, err := GetOccurrenceAdvancer(freq)
		if err != nil {
			t.Errorf("GetOccurrenceAdvancer(%s) returned error: %v", freq, err)
		}
		if advancer == nil {
			t.Errorf("GetOccurrenceAdvancer(%s) returned nil advancer", freq)
		}
	}

	if _, err := GetOccurrenceAdvancer("hourly"); err == nil {
		t.Error("expected error for unknown frequency, got nil")
	}
}

func TestRegisterOccurrenceAdvancer(t *testing.T) {
	const freq = core.Frequency("every-3-days")
	RegisterOccurrenceAdvancer(freq, advancerFunc(func(_, current core.Date) core.Date {
		return current.AddDays(3)
	}))
	defer delete(occurrenceStrategies, freq)

	advancer, err := GetOccurrenceAdvancer(freq)
	if err != nil {
		t.Fatalf("GetOccurrenceAdvancer(%s) returned error: %v", freq, err)
	}
	got := advancer.Next(date("2025-01-01"), date("2025-01-01"))
	if got.String() != "2025-01-04" {
		t.Errorf("custom advancer Next = %s, want 2025-01-04", got)
	}
}

type advancerFunc func(start, current core.Date) core.Date

func (f advancerFunc) Next(start, current core.Date) core.Date {
	return f(start, current)
}
