// Package localnet lists the host's local network interfaces. The client
// session consumes it only to answer the relay keepalive's "ips?" query with
// candidate LAN addresses a peer on the same network might reach directly;
// it has no bearing on the relay-brokered transfer itself.
package localnet

import "net"

// InterfaceLister reports this host's non-loopback IPv4 addresses. It is an
// external collaborator the client session consumes through an interface so
// tests can supply a fixed address list instead of touching the real network
// stack.
type InterfaceLister interface {
	NonLoopbackIPv4() ([]string, error)
}

// SystemLister implements InterfaceLister by walking net.Interfaces().
type SystemLister struct{}

// NonLoopbackIPv4 returns every non-loopback IPv4 address bound to an
// interface that is up.
func (SystemLister) NonLoopbackIPv4() ([]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var ips []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.IsLoopback() {
				continue
			}
			if v4 := ip.To4(); v4 != nil {
				ips = append(ips, v4.String())
			}
		}
	}
	return ips, nil
}
