package bridge

import (
	"github.com/golang/glog"

	"github.com/robotalks/evlink/pkg/link"
	"github.com/robotalks/evlink/pkg/mqtt"
	"github.com/robotalks/evlink/pkg/protocol"
)

// Subscriber subscribes MQTT topic filters. *mqtt.Queue implements it.
type Subscriber interface {
	Sub(filter string, handler mqtt.Handler) *mqtt.Subscription
}

// Forwarder forwards MQTT commands addressed to the device to the
// controller as unsolicited MQTT_RECEIVED packets.
type Forwarder struct {
	Topics    mqtt.Topics
	Responder Responder

	sub *mqtt.Subscription
}

// Start subscribes the command topics.
func (f *Forwarder) Start(s Subscriber) {
	f.sub = s.Sub(f.Topics.Commands(), f.HandleMessage)
}

// Close unsubscribes.
func (f *Forwarder) Close() error {
	if f.sub == nil {
		return nil
	}
	return f.sub.Close()
}

// HandleMessage implements mqtt.Handler.
func (f *Forwarder) HandleMessage(topic string, payload []byte) {
	if !f.Topics.IsCommand(topic) {
		glog.Warningf("ignored message on %s", topic)
		return
	}
	data, err := protocol.MQTTReceived{Topic: topic, Payload: payload}.MarshalBinary()
	if err != nil {
		glog.Errorf("drop %s: %v", topic, err)
		return
	}
	f.Responder.Exec(func(l *link.Link) {
		pkt := link.Packet{Command: protocol.RspMQTTReceived, Payload: data}
		if err := l.SendPacket(pkt); err != nil {
			glog.Errorf("forward %s: %v", topic, err)
			return
		}
		glog.V(1).Infof("forwarded %s", topic)
	})
}
