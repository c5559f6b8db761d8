// Package netinfo enumerates local network interfaces to pick the URLs
// advertised to the operator at startup (spec §4.6, §6).
//
// Addresses beginning with "100." are categorized as mesh (a Tailscale-style
// overlay), "172." addresses are ignored (Docker bridges), and everything
// else non-loopback is treated as a LAN address. The first address seen in
// each category wins.
package netinfo

import (
	"net"
	"strconv"
)

// URLs holds the three advertised URLs computed at startup. LAN and Mesh
// are empty when no matching interface was found.
type URLs struct {
	Primary string
	LAN     string
	Mesh    string
}

// Addresses reports the first LAN and mesh IPv4 addresses found among the
// host's non-loopback interfaces, as produced by net.InterfaceAddrs.
type Addresses struct {
	LAN  string
	Mesh string
}

// Discover enumerates network interfaces and categorizes their IPv4
// addresses.
func Discover() (Addresses, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return Addresses{}, err
	}

	var result Addresses
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip4 := ipNet.IP.To4()
		if ip4 == nil || ipNet.IP.IsLoopback() {
			continue
		}

		ip := ip4.String()
		switch {
		case ip4[0] == 100:
			if result.Mesh == "" {
				result.Mesh = ip
			}
		case ip4[0] == 172:
			// Docker bridge range, ignored.
		default:
			if result.LAN == "" {
				result.LAN = ip
			}
		}
	}

	return result, nil
}

// BuildURLs forms the advertised URLs for the given port and token,
// preferring LAN over mesh over loopback for the primary URL.
func BuildURLs(addrs Addresses, port int, token string) URLs {
	var out URLs

	if addrs.LAN != "" {
		out.LAN = formatURL(addrs.LAN, port, token)
	}
	if addrs.Mesh != "" {
		out.Mesh = formatURL(addrs.Mesh, port, token)
	}

	switch {
	case out.LAN != "":
		out.Primary = out.LAN
	case out.Mesh != "":
		out.Primary = out.Mesh
	default:
		out.Primary = formatURL("127.0.0.1", port, token)
	}

	return out
}

func formatURL(ip string, port int, token string) string {
	return "http://" + ip + ":" + strconv.Itoa(port) + "?token=" + token
}
