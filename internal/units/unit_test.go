package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Unit
	}{
		{"cm", Centimeters},
		{" CM ", Centimeters},
		{"inches", Inches},
		{"in", Inches},
		{"meters", Meters},
		{"m", Meters},
		{"custom", Custom},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Unknown(t *testing.T) {
	u, err := Parse("furlongs")
	assert.Error(t, err)
	assert.Equal(t, Unset, u)
	assert.Contains(t, err.Error(), "cm, inches, meters, custom")
}

func TestWireValues(t *testing.T) {
	assert.Equal(t, []string{"cm", "inches", "meters", "custom"}, Names())
	assert.Equal(t, "", Unset.String())
	assert.False(t, Unset.IsSet())
	assert.True(t, Custom.IsSet())
}
