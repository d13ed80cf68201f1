package server

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyInterface(t *testing.T) {
	tests := []struct {
		iface string
		ip    string
		want  string
	}{
		{"lo0", "127.0.0.1", "localhost"},
		{"utun3", "100.101.102.103", "Tailscale"},
		{"en0", "100.70.1.2", "Tailscale"},
		{"en0", "192.168.1.20", "Wi-Fi"},
		{"WiFi", "10.0.0.2", "Wi-Fi"},
		{"en1", "192.168.2.5", "Ethernet"},
		{"en12", "192.168.3.5", "Ethernet"},
		{"bridge0", "192.168.64.1", "bridge0"},
		{"en", "10.1.1.1", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.iface+"/"+tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyInterface(tt.iface, net.ParseIP(tt.ip).To4()))
		})
	}
}

func TestEndpoints_SortedAndDeduplicated(t *testing.T) {
	addrs := []interfaceAddr{
		{iface: "bridge0", ip: net.ParseIP("192.168.64.1")},
		{iface: "en1", ip: net.ParseIP("192.168.2.5")},
		{iface: "en0", ip: net.ParseIP("192.168.1.20")},
		{iface: "en0", ip: net.ParseIP("fe80::1")},
		{iface: "utun3", ip: net.ParseIP("100.101.102.103")},
		{iface: "lo0", ip: net.ParseIP("127.0.0.1"), loopback: true},
		{iface: "lo0", ip: net.ParseIP("127.0.0.2"), loopback: true},
		{iface: "awdl0", ip: net.ParseIP("192.168.2.5")},
	}

	got := endpoints(addrs, 3000)

	names := make([]string, len(got))
	for i, e := range got {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"localhost", "Tailscale", "Wi-Fi", "Ethernet", "bridge0"}, names)
	assert.Equal(t, "http://127.0.0.1:3000/mcp", got[0].URL)
	assert.Equal(t, "http://100.101.102.103:3000/mcp", got[1].URL)
}

func TestReachableEndpoints_SpecificHost(t *testing.T) {
	got, err := ReachableEndpoints("127.0.0.1", 8080)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "http://127.0.0.1:8080/mcp", got[0].URL)
}

func TestReachableEndpoints_Wildcard(t *testing.T) {
	got, err := ReachableEndpoints("0.0.0.0", 3000)
	require.NoError(t, err)
	for _, e := range got {
		assert.NotNil(t, net.ParseIP(e.Address).To4(), e.Address)
	}
}
