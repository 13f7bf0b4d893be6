// Package serial opens UART transports.
package serial

import (
	"fmt"
	"time"

	"github.com/golang/glog"
	"go.bug.st/serial"

	"github.com/robotalks/evlink/pkg/transport"
)

// Defaults of Config.
const (
	DefaultBaudRate    = 115200
	DefaultReadTimeout = 100 * time.Millisecond
)

// Config describes a serial port.
type Config struct {
	Device      string
	BaudRate    int
	ReadTimeout time.Duration
}

// Open opens the port in 8N1 mode and wraps it in a Pump.
// The read timeout lets the pump observe cancellation between reads.
func Open(conf Config) (*transport.Pump, error) {
	if conf.BaudRate <= 0 {
		conf.BaudRate = DefaultBaudRate
	}
	if conf.ReadTimeout <= 0 {
		conf.ReadTimeout = DefaultReadTimeout
	}
	mode := &serial.Mode{
		BaudRate: conf.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(conf.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", conf.Device, err)
	}
	if err := port.SetReadTimeout(conf.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", conf.Device, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		glog.Warningf("reset input buffer of %s: %v", conf.Device, err)
	}
	glog.Infof("opened %s at %d baud", conf.Device, conf.BaudRate)
	return transport.NewPump(port), nil
}
