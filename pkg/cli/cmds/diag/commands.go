// Package diag provides the link diagnostic commands of the shell.
package diag

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/evlink/pkg/cli/sh"
	"github.com/robotalks/evlink/pkg/journal"
	"github.com/robotalks/evlink/pkg/link"
	"github.com/robotalks/evlink/pkg/protocol"
)

// BufferInfo is the output of the buffer command.
type BufferInfo struct {
	Used     int            `json:"used"`
	Capacity int            `json:"capacity"`
	Usage    int            `json:"usage"`
	Stats    link.RingStats `json:"stats"`
}

var (
	// StatusCmd prints the link status.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			var st link.Status
			if err := sh.SessionFrom(c).Exec(func(l *link.Link) { st = l.Status() }); err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, st, FormatStatus(st))
		}),
	}

	// BufferCmd prints the receive buffer usage.
	BufferCmd = ishell.Cmd{
		Name:    "buffer",
		Aliases: []string{"buf"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			var info BufferInfo
			err := sh.SessionFrom(c).Exec(func(l *link.Link) {
				info.Used = l.BufferUsage()
				info.Stats = l.BufferStats()
			})
			if err != nil {
				c.Err(err)
				return
			}
			info.Capacity = link.RingCapacity
			info.Usage = info.Used * 100 / info.Capacity
			sh.Print(c, info, fmt.Sprintf("%d/%d bytes (%d%%) pushed=%d popped=%d overflows=%d peak=%d",
				info.Used, info.Capacity, info.Usage,
				info.Stats.Pushed, info.Stats.Popped, info.Stats.Overflows, info.Stats.Peak))
		}),
	}

	// ClearCmd drops unparsed bytes.
	ClearCmd = ishell.Cmd{
		Name: "clear",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if err := sh.SessionFrom(c).Exec(func(l *link.Link) { l.ClearBuffer() }); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	}

	// SendCmd sends a raw command and waits for the response.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"s"},
		Help:    "CMD [HEX]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("CMD expected"))
				return
			}
			cmd, err := ParseByte(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			var payload []byte
			if len(c.Args) > 1 {
				if payload, err = ParseHex(strings.Join(c.Args[1:], "")); err != nil {
					c.Err(err)
					return
				}
			}
			request(c, cmd, payload)
		}),
	}

	// AckCmd sends an ACK.
	AckCmd = ishell.Cmd{
		Name: "ack",
		Help: "SEQ STATUS",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("SEQ STATUS expected"))
				return
			}
			seq, err := ParseByte(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			status, err := ParseStatus(c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			var sendErr error
			if err := sh.SessionFrom(c).Exec(func(l *link.Link) { sendErr = l.SendAck(seq, status) }); err != nil {
				c.Err(err)
				return
			}
			if sendErr != nil {
				c.Err(sendErr)
				return
			}
			c.Println("OK")
		}),
	}

	// TimeCmd queries the bridge time.
	TimeCmd = ishell.Cmd{
		Name: "time",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			res, err := sh.SessionFrom(c).Request(protocol.CmdGetTime, nil)
			if err != nil {
				c.Err(err)
				return
			}
			var data protocol.TimeData
			if err := data.UnmarshalBinary(res.Payload); err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, data, fmt.Sprintf("%s synced=%v", data.Time().Format("2006-01-02 15:04:05 -07:00"), data.Synced))
		}),
	}

	// WiFiCmd queries the bridge network status.
	WiFiCmd = ishell.Cmd{
		Name: "wifi",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			res, err := sh.SessionFrom(c).Request(protocol.CmdWiFiStatus, nil)
			if err != nil {
				c.Err(err)
				return
			}
			var st protocol.WiFiStatus
			if err := st.UnmarshalBinary(res.Payload); err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, st, fmt.Sprintf("wifi=%v mqtt=%v rssi=%d ip=%s uptime=%ds",
				st.WiFi, st.MQTT, st.RSSI, st.IPAddr(), st.Uptime))
		}),
	}

	// PublishCmd asks the bridge to publish an MQTT message.
	PublishCmd = ishell.Cmd{
		Name:    "publish",
		Aliases: []string{"pub"},
		Help:    "TOPIC DATA",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("TOPIC DATA expected"))
				return
			}
			msg := protocol.MQTTPublish{Topic: c.Args[0], Data: strings.Join(c.Args[1:], " ")}
			payload, err := msg.MarshalBinary()
			if err != nil {
				c.Err(err)
				return
			}
			request(c, protocol.CmdMQTTPublish, payload)
		}),
	}

	// JournalCmd lists recently journaled frames.
	JournalCmd = ishell.Cmd{
		Name:    "journal",
		Aliases: []string{"j"},
		Help:    "[N]",
		Func: func(c *ishell.Context) {
			j := sh.ShellFrom(c).Journal
			if j == nil {
				c.Err(fmt.Errorf("journal not enabled"))
				return
			}
			n := 20
			if len(c.Args) > 0 {
				var err error
				if n, err = strconv.Atoi(c.Args[0]); err != nil || n <= 0 {
					c.Err(fmt.Errorf("invalid count %q", c.Args[0]))
					return
				}
			}
			frames, err := j.Recent(n)
			if err != nil {
				c.Err(err)
				return
			}
			if frames == nil {
				frames = []journal.Frame{}
			}
			var w bytes.Buffer
			for i := len(frames) - 1; i >= 0; i-- {
				fmt.Fprintln(&w, frames[i])
			}
			sh.Print(c, frames, strings.TrimRight(w.String(), "\n"))
		},
	}
)

func request(c *ishell.Context, cmd byte, payload []byte) {
	res, err := sh.SessionFrom(c).Request(cmd, payload)
	if err != nil {
		c.Err(err)
		return
	}
	sh.Print(c, res, FormatResult(res))
}

// ParseByte parses a decimal, 0x hex or 0 octal byte value.
func ParseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte %q", s)
	}
	return byte(v), nil
}

// ParseStatus parses a status code by number or name, e.g. 3 or INVALID.
func ParseStatus(s string) (byte, error) {
	for status := protocol.StatusSuccess; status <= protocol.StatusInvalid; status++ {
		if strings.EqualFold(s, protocol.StatusName(status)) {
			return status, nil
		}
	}
	return ParseByte(s)
}

// ParseHex parses a payload in hex, spaces and colons allowed.
func ParseHex(s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", ":", "").Replace(s)
	payload, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload: %w", err)
	}
	if len(payload) > link.MaxPayload {
		return nil, link.ErrInvalidParameter
	}
	return payload, nil
}

// FormatResult prints a response for display.
func FormatResult(res link.Result) string {
	if res.Command == link.AckCommand {
		return fmt.Sprintf("ACK %s", protocol.StatusName(res.Status))
	}
	if len(res.Payload) == 0 {
		return protocol.CommandName(res.Command)
	}
	return fmt.Sprintf("%s % X", protocol.CommandName(res.Command), res.Payload)
}

// FormatStatus prints the link status for display.
func FormatStatus(st link.Status) string {
	var w bytes.Buffer
	state := "disconnected"
	if st.Connected {
		state = "connected"
	}
	fmt.Fprintf(&w, "link %s", state)
	if !st.LastPacket.IsZero() {
		fmt.Fprintf(&w, ", last packet %s", st.LastPacket.Format("15:04:05.000"))
	}
	fmt.Fprintf(&w, "\nrx %d packets %d bytes, tx %d packets %d bytes",
		st.RxPackets, st.RxBytes, st.TxPackets, st.TxBytes)
	fmt.Fprintf(&w, "\nerrors %d: checksum=%d timeout=%d length=%d framing=%d overflow=%d skipped=%d",
		st.Errors, st.ChecksumErrors, st.TimeoutErrors, st.LengthErrors,
		st.FramingErrors, st.OverflowErrors, st.SkippedBytes)
	return w.String()
}

func init() {
	sh.AddCmds(
		&StatusCmd,
		&BufferCmd,
		&ClearCmd,
		&SendCmd,
		&AckCmd,
		&TimeCmd,
		&WiFiCmd,
		&PublishCmd,
		&JournalCmd,
	)
}
