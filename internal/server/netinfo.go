package server

import (
	"cmp"
	"fmt"
	"net"
	"regexp"
	"slices"
	"strings"
)

// Interface display names, in banner order.
const (
	ifaceLocalhost = "localhost"
	ifaceTailscale = "Tailscale"
	ifaceWiFi      = "Wi-Fi"
	ifaceEthernet  = "Ethernet"
)

var ifacePriority = map[string]int{
	ifaceLocalhost: 0,
	ifaceTailscale: 1,
	ifaceWiFi:      2,
	ifaceEthernet:  3,
}

var ethernetName = regexp.MustCompile(`^en[1-9][0-9]*$`)

// Endpoint is one URL the MCP endpoint can be reached at.
type Endpoint struct {
	Name    string
	Address string
	URL     string
}

// interfaceAddr is an IPv4 address of a named interface.
type interfaceAddr struct {
	iface    string
	ip       net.IP
	loopback bool
}

// classifyInterface names the interface an address belongs to. Tailscale
// hands out addresses from 100.64.0.0/10; en0 is Wi-Fi on most Macs.
func classifyInterface(iface string, ip net.IP) string {
	lower := strings.ToLower(iface)
	switch {
	case ip.IsLoopback() || iface == "lo0":
		return ifaceLocalhost
	case ip[0] == 100:
		return ifaceTailscale
	case iface == "en0" || strings.Contains(lower, "wifi") || strings.Contains(lower, "wi-fi"):
		return ifaceWiFi
	case ethernetName.MatchString(iface) || strings.Contains(lower, "ethernet"):
		return ifaceEthernet
	default:
		return iface
	}
}

// endpoints turns interface addresses into sorted, de-duplicated URLs.
// Only IPv4 addresses are listed; loopback only as 127.0.0.1.
func endpoints(addrs []interfaceAddr, port int) []Endpoint {
	seen := make(map[string]struct{})
	out := make([]Endpoint, 0, len(addrs))

	for _, a := range addrs {
		ip := a.ip.To4()
		if ip == nil {
			continue
		}
		if a.loopback && !ip.Equal(net.IPv4(127, 0, 0, 1)) {
			continue
		}
		addr := ip.String()
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}

		out = append(out, Endpoint{
			Name:    classifyInterface(a.iface, ip),
			Address: addr,
			URL:     endpointURL(addr, port),
		})
	}

	slices.SortStableFunc(out, func(a, b Endpoint) int {
		if c := cmp.Compare(priority(a.Name), priority(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

func priority(name string) int {
	if p, ok := ifacePriority[name]; ok {
		return p
	}
	return 99
}

func endpointURL(host string, port int) string {
	return fmt.Sprintf("http://%s%s", net.JoinHostPort(host, fmt.Sprint(port)), MCPEndpoint)
}

// ReachableEndpoints lists the URLs of the MCP endpoint for a server bound
// to host:port. A wildcard host expands to every up interface.
func ReachableEndpoints(host string, port int) ([]Endpoint, error) {
	if host != "" && host != "0.0.0.0" && host != "::" {
		return []Endpoint{{Name: host, Address: host, URL: endpointURL(host, port)}}, nil
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list network interfaces: %w", err)
	}

	var addrs []interfaceAddr
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		ifAddrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range ifAddrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			addrs = append(addrs, interfaceAddr{
				iface:    iface.Name,
				ip:       ipNet.IP,
				loopback: iface.Flags&net.FlagLoopback != 0,
			})
		}
	}
	return endpoints(addrs, port), nil
}
