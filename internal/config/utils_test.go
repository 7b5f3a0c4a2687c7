package config

import (
	"testing"
	"time"
)

func TestParseInterval(t *testing.T) {
	tests := []struct {
		name     string
		interval string
		want     time.Duration
		wantErr  bool
	}{
		{
			name:     "minutes notation",
			interval: "30m",
			want:     30 * time.Minute,
		},
		{
			name:     "hours notation",
			interval: "3h",
			want:     3 * time.Hour,
		},
		{
			name:     "days notation",
			interval: "7d",
			want:     7 * 24 * time.Hour,
		},
		{
			name:     "weeks notation",
			interval: "2w",
			want:     14 * 24 * time.Hour,
		},
		{
			name:     "go duration",
			interval: "1h30m",
			want:     90 * time.Minute,
		},
		{
			name:     "invalid format - too short",
			interval: "d",
			wantErr:  true,
		},
		{
			name:     "invalid format - no number",
			interval: "abcd",
			wantErr:  true,
		},
		{
			name:     "invalid unit",
			interval: "5y",
			wantErr:  true,
		},
		{
			name:     "negative value",
			interval: "-5d",
			wantErr:  true,
		},
		{
			name:     "zero value",
			interval: "0d",
			wantErr:  true,
		},
		{
			name:     "negative go duration",
			interval: "-1h",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseInterval(tt.interval)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseInterval() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("parseInterval() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseTimeout(t *testing.T) {
	if d, err := ParseTimeout("0"); err != nil || d != 0 {
		t.Errorf("ParseTimeout(0) = %v, %v; want 0, nil", d, err)
	}
	if d, err := ParseTimeout("0s"); err != nil || d != 0 {
		t.Errorf("ParseTimeout(0s) = %v, %v; want 0, nil", d, err)
	}
	if d, err := ParseTimeout("45s"); err != nil || d != 45*time.Second {
		t.Errorf("ParseTimeout(45s) = %v, %v; want 45s, nil", d, err)
	}
	if _, err := ParseTimeout("later"); err == nil {
		t.Error("ParseTimeout(later) expected error")
	}
}
