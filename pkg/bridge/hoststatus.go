package bridge

import (
	"net"
	"time"

	"github.com/robotalks/evlink/pkg/protocol"
)

// HostStatus reports the network status of the host running the bridge.
type HostStatus struct {
	started time.Time
}

// NewHostStatus creates a HostStatus counting uptime from now.
func NewHostStatus() *HostStatus {
	return &HostStatus{started: time.Now()}
}

// Uptime returns the time since the HostStatus was created.
func (h *HostStatus) Uptime() time.Duration {
	return time.Since(h.started)
}

// WiFiStatus reports the first non-loopback IPv4 address of an interface
// which is up. RSSI is not available and reported as 0.
func (h *HostStatus) WiFiStatus() protocol.WiFiStatus {
	status := protocol.WiFiStatus{Uptime: uint32(h.Uptime() / time.Second)}
	ifaces, err := net.Interfaces()
	if err != nil {
		return status
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
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if ip4 := ipnet.IP.To4(); ip4 != nil {
				status.WiFi = true
				copy(status.IP[:], ip4)
				return status
			}
		}
	}
	return status
}
