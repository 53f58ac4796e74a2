package leads

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+1 (555) 123-4567", "+15551234567"},
		{"0044 7700 900123", "+447700900123"},
		{"447700900123", "+447700900123"},
		{"12345", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.in))
		})
	}
}

func TestAdvance(t *testing.T) {
	assert.Equal(t, StatusContacted, Advance(StatusNew, StatusContacted))
	assert.Equal(t, StatusBooked, Advance(StatusBooked, StatusContacted))
	assert.Equal(t, StatusQualified, Advance(StatusContacted, StatusQualified))
	assert.Equal(t, StatusLost, Advance(StatusQualified, StatusLost))
	assert.Equal(t, StatusLost, Advance(StatusLost, StatusBooked))
	assert.Equal(t, StatusCompleted, Advance(StatusCompleted, StatusNew))
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusNew, StatusContacted, StatusQualified, StatusBooked, StatusCompleted, StatusLost} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Status("archived").Valid())
}

func TestFirstName(t *testing.T) {
	assert.Equal(t, "Jane", (&Lead{Name: "Jane Doe"}).FirstName())
	assert.Equal(t, "there", (&Lead{}).FirstName())
}
