package bridge

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/evlink/pkg/framework"
	"github.com/robotalks/evlink/pkg/link"
	"github.com/robotalks/evlink/pkg/mqtt"
)

// DefaultHeartbeatInterval is the default interval between heartbeats.
const DefaultHeartbeatInterval = 30 * time.Second

// HeartbeatMessage is the heartbeat payload.
type HeartbeatMessage struct {
	MsgID  string        `json:"msgId"`
	Uptime uint64        `json:"uptime"`
	Link   HeartbeatLink `json:"link"`
}

// HeartbeatLink summarizes the link status in heartbeats.
type HeartbeatLink struct {
	Connected bool   `json:"connected"`
	RxPackets uint32 `json:"rxPackets"`
	TxPackets uint32 `json:"txPackets"`
	Errors    uint32 `json:"errors"`
	Buffered  int    `json:"buffered"`
}

// Heartbeat periodically publishes the bridge status. It runs as a loop
// controller so it reads the link on the loop goroutine.
type Heartbeat struct {
	Interval  time.Duration
	Topics    mqtt.Topics
	Publisher Publisher
	Link      *link.Link

	started time.Time
	next    time.Time
}

// AddToLoop implements framework.LoopAdder.
func (h *Heartbeat) AddToLoop(l *framework.Loop) {
	l.AddController(framework.PrLvLow, h)
}

// Control implements framework.Controller.
func (h *Heartbeat) Control(cc framework.ControlContext) error {
	now := cc.Time()
	if h.started.IsZero() {
		h.started = now
	}
	if now.Before(h.next) {
		return nil
	}
	interval := h.Interval
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	h.next = now.Add(interval)

	if !h.Publisher.IsConnected() {
		glog.Warning("mqtt not connected, heartbeat skipped")
		return nil
	}
	payload, err := json.Marshal(h.message(now))
	if err != nil {
		return err
	}
	topic := h.Topics.Heartbeat()
	h.Publisher.Publish(topic, payload, func(err error) {
		if err != nil {
			glog.Errorf("heartbeat: %v", err)
		}
	})
	return nil
}

func (h *Heartbeat) message(now time.Time) HeartbeatMessage {
	status := h.Link.Status()
	return HeartbeatMessage{
		MsgID:  strconv.FormatInt(now.UnixNano()/int64(time.Millisecond), 10),
		Uptime: uint64(now.Sub(h.started) / time.Second),
		Link: HeartbeatLink{
			Connected: status.Connected,
			RxPackets: status.RxPackets,
			TxPackets: status.TxPackets,
			Errors:    status.Errors,
			Buffered:  h.Link.BufferUsage(),
		},
	}
}
