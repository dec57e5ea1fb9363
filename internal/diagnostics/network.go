package diagnostics

import (
	"net"
	"sort"
)

var (
	listInterfaces = net.Interfaces
	interfaceAddrs = func(iface net.Interface) ([]net.Addr, error) { return iface.Addrs() }
)

type InterfaceStatus struct {
	Name      string   `json:"name"`
	Up        bool     `json:"up"`
	Multicast bool     `json:"multicast"`
	Loopback  bool     `json:"loopback"`
	IPv4      []string `json:"ipv4,omitempty"`
	IPv6      []string `json:"ipv6,omitempty"`
}

// NetworkReport describes whether mDNS browsing can reach the LAN.
type NetworkReport struct {
	Interfaces []InterfaceStatus `json:"interfaces"`
	// Usable counts interfaces that are up, multicast-capable, not loopback
	// and carry an address.
	Usable        int    `json:"usable"`
	MDNSAvailable bool   `json:"mdns_available"`
	Error         string `json:"error,omitempty"`
}

func DetectNetwork() NetworkReport {
	ifaces, err := listInterfaces()
	if err != nil {
		return NetworkReport{Interfaces: []InterfaceStatus{}, Error: err.Error()}
	}

	report := NetworkReport{Interfaces: make([]InterfaceStatus, 0, len(ifaces))}
	for _, iface := range ifaces {
		status := InterfaceStatus{
			Name:      iface.Name,
			Up:        iface.Flags&net.FlagUp != 0,
			Multicast: iface.Flags&net.FlagMulticast != 0,
			Loopback:  iface.Flags&net.FlagLoopback != 0,
		}
		addrs, err := interfaceAddrs(iface)
		if err == nil {
			for _, addr := range addrs {
				ip := addrIP(addr)
				switch {
				case ip == nil:
				case ip.To4() != nil:
					status.IPv4 = append(status.IPv4, ip.String())
				default:
					status.IPv6 = append(status.IPv6, ip.String())
				}
			}
		}
		if status.Up && status.Multicast && !status.Loopback && len(status.IPv4)+len(status.IPv6) > 0 {
			report.Usable++
		}
		report.Interfaces = append(report.Interfaces, status)
	}
	sort.Slice(report.Interfaces, func(i, j int) bool {
		return report.Interfaces[i].Name < report.Interfaces[j].Name
	})
	report.MDNSAvailable = report.Usable > 0
	return report
}

func addrIP(addr net.Addr) net.IP {
	switch v := addr.(type) {
	case *net.IPNet:
		return v.IP
	case *net.IPAddr:
		return v.IP
	default:
		return nil
	}
}
