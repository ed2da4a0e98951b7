package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescriptor_Label(t *testing.T) {
	tests := []struct {
		name     string
		device   Descriptor
		expected string
	}{
		{
			name:     "user name wins",
			device:   Descriptor{ModelName: "Roku Ultra", UserDeviceName: "Living Room"},
			expected: "Living Room",
		},
		{
			name:     "model name fallback",
			device:   Descriptor{ModelName: "Roku Express"},
			expected: "Roku Express",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.device.Label())
		})
	}
}

func TestDescriptor_PrivateListening(t *testing.T) {
	tests := []struct {
		name string
		flag string
		want bool
	}{
		{name: "true", flag: "true", want: true},
		{name: "padded true", flag: " true\n", want: true},
		{name: "mixed case", flag: "True", want: true},
		{name: "false", flag: "false", want: false},
		{name: "numeric is not a boolean word", flag: "1", want: false},
		{name: "absent", flag: "", want: false},
		{name: "garbage", flag: "maybe", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Descriptor{SupportsPrivateListening: tt.flag}
			assert.Equal(t, tt.want, d.PrivateListening())
		})
	}
}

func TestDescriptor_String(t *testing.T) {
	d := Descriptor{
		Host:           "http://192.168.1.9:8060/",
		ModelName:      "Roku Ultra",
		UserDeviceName: "Den",
	}
	assert.Equal(t, "Den (Roku Ultra) at http://192.168.1.9:8060/", d.String())
}
