package server

import (
	"fmt"
	"net"
	"os"
)

func genericInterface(host string) bool {
	ip := net.ParseIP(host)
	return ip != nil && (ip.IsUnspecified() || ip.IsLoopback())
}

// PublicURL returns the url clients use to reach a listen address.
// Unspecified and loopback hosts resolve to the machine's host name.
func PublicURL(listen string) (string, error) {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "", err
	}

	if host == "" || genericInterface(host) {
		if host, err = os.Hostname(); err != nil {
			return "", err
		}
	}

	return fmt.Sprintf("http://%s", net.JoinHostPort(host, port)), nil
}
