package selection

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/rplisten/internal/discovery"
)

func countManual(entries []Entry) int {
	n := 0
	for _, e := range entries {
		if e.IsManual() {
			n++
		}
	}
	return n
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name       string
		input      []discovery.Descriptor
		wantLabels []string
	}{
		{
			name:       "empty discovery",
			input:      nil,
			wantLabels: []string{ManualLabel},
		},
		{
			name: "capability flag variants",
			input: []discovery.Descriptor{
				{Host: "http://10.0.0.1:8060/", ModelName: "Ultra", SupportsPrivateListening: "true"},
				{Host: "http://10.0.0.2:8060/", ModelName: "Express", SupportsPrivateListening: "false"},
				{Host: "http://10.0.0.3:8060/", ModelName: "Stick"},
				{Host: "http://10.0.0.4:8060/", ModelName: "TV", SupportsPrivateListening: "yes please"},
				{Host: "http://10.0.0.5:8060/", ModelName: "Streambar", UserDeviceName: "Kitchen", SupportsPrivateListening: "TRUE"},
			},
			wantLabels: []string{ManualLabel, "Ultra", "Kitchen"},
		},
		{
			name: "no capable devices",
			input: []discovery.Descriptor{
				{ModelName: "Express", SupportsPrivateListening: "false"},
			},
			wantLabels: []string{ManualLabel},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := Filter(tt.input)

			labels := make([]string, 0, len(entries))
			for _, e := range entries {
				labels = append(labels, e.Label())
			}

			assert.Equal(t, tt.wantLabels, labels)
			assert.True(t, entries[0].IsManual(), "sentinel must be first")
			assert.Equal(t, 1, countManual(entries))
		})
	}
}

func TestFilter_SentinelAlwaysExactlyOnce(t *testing.T) {
	for n := 0; n < 20; n++ {
		var input []discovery.Descriptor
		for i := 0; i < n; i++ {
			flag := "true"
			if i%3 == 0 {
				flag = ""
			}
			input = append(input, discovery.Descriptor{
				Host:                     fmt.Sprintf("http://10.0.0.%d:8060/", i),
				ModelName:                fmt.Sprintf("Model %d", i),
				SupportsPrivateListening: flag,
			})
		}

		entries := Filter(input)
		require.NotEmpty(t, entries)
		assert.Equal(t, 1, countManual(entries), "n=%d", n)
		assert.True(t, entries[0].IsManual(), "n=%d", n)

		for _, e := range entries[1:] {
			d, ok := e.Device()
			require.True(t, ok)
			assert.True(t, d.PrivateListening())
		}
	}
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	input := []discovery.Descriptor{
		{ModelName: "Ultra", SupportsPrivateListening: "true"},
	}
	_ = Filter(input)
	assert.Equal(t, "Ultra", input[0].ModelName)
	assert.Len(t, input, 1)
}

func TestEntry_Accessors(t *testing.T) {
	manual := ManualAddress()
	assert.Equal(t, KindManualAddress, manual.Kind())
	assert.Equal(t, "manual", manual.Kind().String())
	_, ok := manual.Device()
	assert.False(t, ok)

	device := DeviceEntry(discovery.Descriptor{ModelName: "Ultra"})
	assert.Equal(t, KindDevice, device.Kind())
	assert.Equal(t, "device", device.Kind().String())
	d, ok := device.Device()
	assert.True(t, ok)
	assert.Equal(t, "Ultra", d.ModelName)
	assert.Equal(t, "Ultra", device.Label())
}
