package core

import "testing"

func TestStepDate(t *testing.T) {
	tests := []struct {
		name string
		from Date
		freq Frequency
		want Date
	}{
		{"daily", NewDate(2024, 1, 15), Daily, NewDate(2024, 1, 16)},
		{"daily across month end", NewDate(2024, 1, 31), Daily, NewDate(2024, 2, 1)},
		{"weekly", NewDate(2024, 1, 15), Weekly, NewDate(2024, 1, 22)},
		{"weekly across year end", NewDate(2023, 12, 28), Weekly, NewDate(2024, 1, 4)},
		{"monthly", NewDate(2024, 3, 10), Monthly, NewDate(2024, 4, 10)},
		{"monthly jan 31 clamps to feb 29", NewDate(2024, 1, 31), Monthly, NewDate(2024, 2, 29)},
		{"monthly jan 31 clamps to feb 28", NewDate(2023, 1, 31), Monthly, NewDate(2023, 2, 28)},
		{"monthly may 31 clamps to jun 30", NewDate(2024, 5, 31), Monthly, NewDate(2024, 6, 30)},
		{"monthly dec wraps year", NewDate(2023, 12, 15), Monthly, NewDate(2024, 1, 15)},
		{"yearly", NewDate(2023, 6, 1), Yearly, NewDate(2024, 6, 1)},
		{"yearly feb 29 clamps to feb 28", NewDate(2024, 2, 29), Yearly, NewDate(2025, 2, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StepDate(tt.from, tt.freq)
			if err != nil {
				t.Fatalf("StepDate() error = %v", err)
			}
			if !got.Equal(tt.want.Time) {
				t.Errorf("StepDate(%s, %s) = %s, want %s", tt.from.ISO(), tt.freq, got.ISO(), tt.want.ISO())
			}
		})
	}
}

func TestStepDateUnknownFrequency(t *testing.T) {
	if _, err := StepDate(NewDate(2024, 1, 1), Frequency("biweekly")); err == nil {
		t.Fatal("expected error for unknown frequency")
	}
}

func TestStartOfWeek(t *testing.T) {
	tests := []struct {
		name string
		in   Date
		want Date
	}{
		{"wednesday", NewDate(2024, 1, 17), NewDate(2024, 1, 15)},
		{"monday is itself", NewDate(2024, 1, 15), NewDate(2024, 1, 15)},
		{"sunday belongs to preceding monday", NewDate(2024, 1, 21), NewDate(2024, 1, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.StartOfWeek(); !got.Equal(tt.want.Time) {
				t.Errorf("StartOfWeek(%s) = %s, want %s", tt.in.ISO(), got.ISO(), tt.want.ISO())
			}
		})
	}
}

func TestDaysInMonth(t *testing.T) {
	if got := NewDate(2024, 2, 10).DaysInMonth(); got != 29 {
		t.Errorf("feb 2024 = %d days, want 29", got)
	}
	if got := NewDate(2023, 2, 10).DaysInMonth(); got != 28 {
		t.Errorf("feb 2023 = %d days, want 28", got)
	}
	if got := NewDate(2024, 4, 1).DaysInMonth(); got != 30 {
		t.Errorf("apr = %d days, want 30", got)
	}
}

func TestParseISO(t *testing.T) {
	d, err := ParseISO("2024-06-15")
	if err != nil {
		t.Fatalf("ParseISO error: %v", err)
	}
	if d.Year() != 2024 || d.Month() != 6 || d.Day() != 15 {
		t.Errorf("ParseISO = %s", d.ISO())
	}
	if _, err := ParseISO("15/06/2024"); err == nil {
		t.Fatal("expected error for malformed date")
	}
}
