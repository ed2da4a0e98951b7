package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/rplisten/internal/discovery"
)

func TestResolve_Manual(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr error
	}{
		{name: "empty", text: "", wantErr: ErrEmptyAddress},
		{name: "whitespace only", text: "  \t ", wantErr: ErrEmptyAddress},
		{name: "address", text: "10.0.0.5", want: "10.0.0.5"},
		{name: "padded address", text: " 192.168.1.1 ", want: "192.168.1.1"},
		{name: "hostname", text: "roku-den.local", want: "roku-den.local"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(ManualAddress(), tt.text)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_Device(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		want    string
		wantErr error
	}{
		{name: "location url", host: "http://192.168.1.9:8060/", want: "192.168.1.9"},
		{name: "no port", host: "http://10.0.0.5", want: "10.0.0.5"},
		{name: "path discarded", host: "http://10.0.0.5:8060/query/device-info", want: "10.0.0.5"},
		{name: "ipv6", host: "http://[fe80::1]:8060/", want: "fe80::1"},
		{name: "bare address has no scheme", host: "192.168.1.9", wantErr: ErrUnresolvableHost},
		{name: "empty", host: "", wantErr: ErrUnresolvableHost},
		{name: "malformed", host: "http://%zz", wantErr: ErrUnresolvableHost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := DeviceEntry(discovery.Descriptor{Host: tt.host, ModelName: "Ultra"})
			got, err := Resolve(entry, "ignored")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_DuplicateLabelsResolveByIdentity(t *testing.T) {
	entries := Filter([]discovery.Descriptor{
		{Host: "http://10.0.0.5:8060/", ModelName: "Roku Ultra", SupportsPrivateListening: "true"},
		{Host: "http://10.0.0.6:8060/", ModelName: "Roku Ultra", SupportsPrivateListening: "true"},
	})
	require.Len(t, entries, 3)
	assert.Equal(t, entries[1].Label(), entries[2].Label())

	first, err := Resolve(entries[1], "")
	require.NoError(t, err)
	second, err := Resolve(entries[2], "")
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5", first)
	assert.Equal(t, "10.0.0.6", second)
}

func TestResolve_ManualIgnoresDevices(t *testing.T) {
	got, err := Resolve(ManualAddress(), "10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", got)
}
