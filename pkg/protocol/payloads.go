package protocol

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/robotalks/evlink/pkg/link"
)

// Payload sizes.
const (
	TimeDataSize   = 7
	WiFiStatusSize = 11
)

var (
	// ErrShortPayload indicates a payload is smaller than its layout.
	ErrShortPayload = errors.New("short payload")
	// ErrMissingField indicates a required field is absent.
	ErrMissingField = errors.New("missing field")
	// ErrPayloadTooLarge indicates an encoded payload exceeds link.MaxPayload.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// TimeData is the payload of RspTimeData.
type TimeData struct {
	Unix     uint32
	TZOffset int16 // minutes
	Synced   bool
}

// NewTimeData creates TimeData from t.
func NewTimeData(t time.Time, synced bool) TimeData {
	_, offset := t.Zone()
	return TimeData{Unix: uint32(t.Unix()), TZOffset: int16(offset / 60), Synced: synced}
}

// Time returns the timestamp in the encoded zone.
func (d TimeData) Time() time.Time {
	zone := time.FixedZone("", int(d.TZOffset)*60)
	return time.Unix(int64(d.Unix), 0).In(zone)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (d TimeData) MarshalBinary() ([]byte, error) {
	b := make([]byte, TimeDataSize)
	binary.LittleEndian.PutUint32(b[0:4], d.Unix)
	binary.LittleEndian.PutUint16(b[4:6], uint16(d.TZOffset))
	if d.Synced {
		b[6] = 1
	}
	return b, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (d *TimeData) UnmarshalBinary(b []byte) error {
	if len(b) < TimeDataSize {
		return fmt.Errorf("time data: %w: %d bytes", ErrShortPayload, len(b))
	}
	d.Unix = binary.LittleEndian.Uint32(b[0:4])
	d.TZOffset = int16(binary.LittleEndian.Uint16(b[4:6]))
	d.Synced = b[6] != 0
	return nil
}

// WiFiStatus is the payload of RspWiFiStatus.
type WiFiStatus struct {
	WiFi   bool
	MQTT   bool
	RSSI   int8
	IP     [4]byte
	Uptime uint32 // seconds
}

// IPAddr returns IP as net.IP.
func (s WiFiStatus) IPAddr() net.IP {
	return net.IPv4(s.IP[0], s.IP[1], s.IP[2], s.IP[3])
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s WiFiStatus) MarshalBinary() ([]byte, error) {
	b := make([]byte, WiFiStatusSize)
	if s.WiFi {
		b[0] = 1
	}
	if s.MQTT {
		b[1] = 1
	}
	b[2] = byte(s.RSSI)
	copy(b[3:7], s.IP[:])
	binary.LittleEndian.PutUint32(b[7:11], s.Uptime)
	return b, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *WiFiStatus) UnmarshalBinary(b []byte) error {
	if len(b) < WiFiStatusSize {
		return fmt.Errorf("wifi status: %w: %d bytes", ErrShortPayload, len(b))
	}
	s.WiFi = b[0] != 0
	s.MQTT = b[1] != 0
	s.RSSI = int8(b[2])
	copy(s.IP[:], b[3:7])
	s.Uptime = binary.LittleEndian.Uint32(b[7:11])
	return nil
}

// MQTTPublish is the JSON payload of CmdMQTTPublish.
type MQTTPublish struct {
	Topic string `json:"topic"`
	Data  string `json:"data"`
}

// ParseMQTTPublish decodes and validates a CmdMQTTPublish payload.
func ParseMQTTPublish(b []byte) (MQTTPublish, error) {
	var msg MQTTPublish
	if err := json.Unmarshal(b, &msg); err != nil {
		return msg, fmt.Errorf("mqtt publish: %w", err)
	}
	if msg.Topic == "" || msg.Data == "" {
		return msg, fmt.Errorf("mqtt publish: %w: topic or data", ErrMissingField)
	}
	return msg, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (m MQTTPublish) MarshalBinary() ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	if len(b) > link.MaxPayload {
		return nil, fmt.Errorf("mqtt publish: %w: %d bytes", ErrPayloadTooLarge, len(b))
	}
	return b, nil
}

// MQTTReceived is the payload of RspMQTTReceived: topic, a zero byte, then
// the message payload.
type MQTTReceived struct {
	Topic   string
	Payload []byte
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (m MQTTReceived) MarshalBinary() ([]byte, error) {
	size := len(m.Topic) + 1 + len(m.Payload)
	if size > link.MaxPayload {
		return nil, fmt.Errorf("mqtt received: %w: %d bytes", ErrPayloadTooLarge, size)
	}
	b := make([]byte, 0, size)
	b = append(b, m.Topic...)
	b = append(b, 0)
	return append(b, m.Payload...), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (m *MQTTReceived) UnmarshalBinary(b []byte) error {
	pos := bytes.IndexByte(b, 0)
	if pos < 0 {
		return fmt.Errorf("mqtt received: %w: topic terminator", ErrMissingField)
	}
	m.Topic = string(b[:pos])
	m.Payload = append([]byte(nil), b[pos+1:]...)
	return nil
}
