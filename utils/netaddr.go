package utils

import (
	"net"
)

// LocalIP returns the first non-loopback IPv4 address of this host, or
// "localhost" when there is none.
func LocalIP() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "localhost"
	}

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
			if ip4 := ip.To4(); ip4 != nil && !ip4.IsLoopback() {
				return ip4.String()
			}
		}
	}

	return "localhost"
}

// DisplayURL renders a listen address such as ":8080" as a clickable URL
// on host.
func DisplayURL(host, addr string) string {
	h, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if h == "" || h == "0.0.0.0" || h == "::" {
		h = host
	}
	if port == "80" {
		return "http://" + h
	}
	return "http://" + net.JoinHostPort(h, port)
}
