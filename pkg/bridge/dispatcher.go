package bridge

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/evlink/pkg/link"
	"github.com/robotalks/evlink/pkg/protocol"
)

// Publisher publishes MQTT messages. *mqtt.Queue implements it.
type Publisher interface {
	// Publish publishes payload and reports the outcome to done, possibly
	// from another goroutine.
	Publish(topic string, payload []byte, done func(error))
	IsConnected() bool
}

// Responder sends replies over the link. *LinkController implements it.
type Responder interface {
	// Link is used for replies sent while handling a packet.
	Link() *link.Link
	// Exec is used for replies sent from other goroutines.
	Exec(func(*link.Link))
}

// Dispatcher handles commands from the controller.
type Dispatcher struct {
	Publisher Publisher
	Responder Responder
	// Clock provides the time reported by GET_TIME.
	Clock func() time.Time
	// TimeSynced reports whether Clock is synchronized.
	TimeSynced func() bool
	// NetworkStatus provides the status reported by WIFI_STATUS.
	// MQTT is always filled from Publisher.
	NetworkStatus func() protocol.WiFiStatus
}

// NewDispatcher creates a Dispatcher with host clock and network status.
func NewDispatcher(pub Publisher) *Dispatcher {
	host := NewHostStatus()
	return &Dispatcher{
		Publisher:     pub,
		Clock:         time.Now,
		TimeSynced:    func() bool { return true },
		NetworkStatus: host.WiFiStatus,
	}
}

// HandlePacket implements link.PacketHandler.
func (d *Dispatcher) HandlePacket(ctx context.Context, pkt *link.Packet) {
	glog.V(1).Infof("command %s seq=%d", protocol.CommandName(pkt.Command), pkt.Sequence)
	switch pkt.Command {
	case protocol.CmdMQTTPublish:
		d.handleMQTTPublish(pkt)
	case protocol.CmdGetTime:
		d.handleGetTime(pkt)
	case protocol.CmdWiFiStatus:
		d.handleWiFiStatus(pkt)
	default:
		if pkt.IsResponse() {
			glog.Warningf("unexpected response %s seq=%d", protocol.CommandName(pkt.Command), pkt.Sequence)
			return
		}
		glog.Warningf("unsupported command %s", protocol.CommandName(pkt.Command))
		d.ack(pkt.Sequence, protocol.StatusInvalid)
	}
}

func (d *Dispatcher) handleMQTTPublish(pkt *link.Packet) {
	msg, err := protocol.ParseMQTTPublish(pkt.Payload)
	if err != nil {
		glog.Errorf("seq=%d: %v", pkt.Sequence, err)
		d.ack(pkt.Sequence, protocol.StatusInvalid)
		return
	}
	seq := pkt.Sequence
	d.Publisher.Publish(msg.Topic, []byte(msg.Data), func(err error) {
		status := protocol.StatusSuccess
		if err != nil {
			glog.Errorf("publish %s: %v", msg.Topic, err)
			status = protocol.StatusError
		}
		d.Responder.Exec(func(l *link.Link) {
			if err := l.SendAck(seq, status); err != nil {
				glog.Errorf("ack seq=%d: %v", seq, err)
			}
		})
	})
}

func (d *Dispatcher) handleGetTime(pkt *link.Packet) {
	data := protocol.NewTimeData(d.Clock(), d.TimeSynced())
	payload, _ := data.MarshalBinary()
	d.reply(protocol.RspTimeData, pkt.Sequence, payload)
}

func (d *Dispatcher) handleWiFiStatus(pkt *link.Packet) {
	status := d.NetworkStatus()
	status.MQTT = d.Publisher.IsConnected()
	payload, _ := status.MarshalBinary()
	d.reply(protocol.RspWiFiStatus, pkt.Sequence, payload)
}

func (d *Dispatcher) ack(seq, status byte) {
	if err := d.Responder.Link().SendAck(seq, status); err != nil {
		glog.Errorf("ack seq=%d: %v", seq, err)
	}
}

func (d *Dispatcher) reply(cmd, seq byte, payload []byte) {
	pkt := link.Packet{Command: cmd, Sequence: seq, Payload: payload}
	if err := d.Responder.Link().SendPacket(pkt); err != nil {
		glog.Errorf("reply %s: %v", pkt, err)
	}
}
