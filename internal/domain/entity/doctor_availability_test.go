package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDoctorAvailability_Covers(t *testing.T) {
	window := &DoctorAvailability{StartTime: "09:00", EndTime: "12:00"}

	tests := []struct {
		name  string
		start string
		end   string
		want  bool
	}{
		{"inside window", "09:30", "10:00", true},
		{"exact window", "09:00", "12:00", true},
		{"touches start", "09:00", "09:30", true},
		{"touches end", "11:30", "12:00", true},
		{"starts before window", "08:30", "10:00", false},
		{"ends after window", "11:00", "12:30", false},
		{"fully outside", "13:00", "14:00", false},
		{"zero length slot", "10:00", "10:00", false},
		{"inverted slot", "11:00", "10:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, window.Covers(tt.start, tt.end))
		})
	}
}
