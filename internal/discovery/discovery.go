// Package discovery advertises the HTTP status server over mDNS/DNS-SD.
package discovery

import (
	"fmt"
	"log"
	"net"
	"os"
	"strconv"

	"github.com/grandcat/zeroconf"
)

// Service is the DNS-SD service type.
const Service = "_solartracker._tcp"

// Domain is the mDNS domain.
const Domain = "local."

// Advertiser holds a running mDNS registration.
type Advertiser struct {
	server *zeroconf.Server
}

// Register announces instance on port with the given TXT records. An empty
// instance uses "solar-tracker-<hostname>".
func Register(instance string, port int, txt []string) (*Advertiser, error) {
	if instance == "" {
		instance = DefaultInstance()
	}
	server, err := zeroconf.Register(instance, Service, Domain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register %s: %w", instance, err)
	}
	log.Printf("discovery: advertising %s.%s.%s on port %d", instance, Service, Domain, port)
	return &Advertiser{server: server}, nil
}

// Shutdown withdraws the registration.
func (a *Advertiser) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
}

// DefaultInstance derives an instance name from the hostname.
func DefaultInstance() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "solar-tracker"
	}
	return "solar-tracker-" + host
}

// PortFromAddr extracts the TCP port from a listen address such as ":80" or
// "0.0.0.0:8080".
func PortFromAddr(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("parse listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("listen address %q has no usable port", addr)
	}
	return port, nil
}

// TXT builds the TXT records advertised alongside the service.
func TXT(version, statusPath string) []string {
	return []string{"version=" + version, "path=" + statusPath}
}
