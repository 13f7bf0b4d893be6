package mqtt

import (
	"fmt"
	"strings"
)

// TopicRoot is the first level of all topics.
const TopicRoot = "ocpp"

// Topics builds the topics of one device.
type Topics struct {
	Station string
	Device  string
}

func (t Topics) base() string {
	return TopicRoot + "/" + t.Station + "/" + t.Device
}

// Heartbeat is where heartbeats are published.
func (t Topics) Heartbeat() string {
	return t.base() + "/heartbeat"
}

// Status is where connector status notifications are published.
func (t Topics) Status(connector uint8) string {
	return fmt.Sprintf("%s/status/%d/status_notification", t.base(), connector)
}

// Meter is where connector meter values are published.
func (t Topics) Meter(connector uint8) string {
	return fmt.Sprintf("%s/meter/%d/meter_values", t.base(), connector)
}

// Transaction is where transaction events (start, stop) are published.
func (t Topics) Transaction(event string) string {
	return t.base() + "/transaction/" + event
}

// Boot is where the boot notification is published.
func (t Topics) Boot() string {
	return t.base() + "/event/0/boot_notification"
}

// Link is where the link status is published.
func (t Topics) Link() string {
	return t.base() + "/link"
}

// Commands is the filter of commands addressed to the device.
func (t Topics) Commands() string {
	return t.base() + "/cmd/#"
}

// IsCommand checks if topic is a command addressed to the device.
func (t Topics) IsCommand(topic string) bool {
	return strings.HasPrefix(topic, t.base()+"/cmd/")
}
