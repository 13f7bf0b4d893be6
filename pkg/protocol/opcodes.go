// Package protocol defines the command vocabulary carried over the link
// between the charger controller and the network bridge.
package protocol

import "fmt"

// Commands sent by the controller.
const (
	CmdMQTTPublish    byte = 0x01
	CmdGetTime        byte = 0x02
	CmdWiFiStatus     byte = 0x03
	CmdConfigUpdate   byte = 0x04
	CmdOTARequest     byte = 0x05
	CmdGetMeterValues byte = 0x06
)

// Responses sent by the bridge.
const (
	RspMQTTAck      byte = 0x81
	RspTimeData     byte = 0x82
	RspWiFiStatus   byte = 0x83
	RspConfigAck    byte = 0x84
	RspMQTTReceived byte = 0x85
	RspOTAStatus    byte = 0x86
)

// Status codes carried by ACKs.
const (
	StatusSuccess byte = 0x00
	StatusError   byte = 0x01
	StatusTimeout byte = 0x02
	StatusInvalid byte = 0x03
)

var commandNames = map[byte]string{
	CmdMQTTPublish:    "MQTT_PUBLISH",
	CmdGetTime:        "GET_TIME",
	CmdWiFiStatus:     "WIFI_STATUS",
	CmdConfigUpdate:   "CONFIG_UPDATE",
	CmdOTARequest:     "OTA_REQUEST",
	CmdGetMeterValues: "GET_METER_VALUES",
	RspMQTTAck:        "MQTT_ACK",
	RspTimeData:       "TIME_DATA",
	RspWiFiStatus:     "WIFI_STATUS_RSP",
	RspConfigAck:      "CONFIG_ACK",
	RspMQTTReceived:   "MQTT_RECEIVED",
	RspOTAStatus:      "OTA_STATUS",
}

// CommandName returns a readable name of a command code.
func CommandName(cmd byte) string {
	if name, ok := commandNames[cmd]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", cmd)
}

var statusNames = [...]string{"SUCCESS", "ERROR", "TIMEOUT", "INVALID"}

// StatusName returns a readable name of a status code.
func StatusName(status byte) string {
	if int(status) < len(statusNames) {
		return statusNames[status]
	}
	return fmt.Sprintf("STATUS(%d)", status)
}
