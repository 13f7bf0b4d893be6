package bridge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/evlink/pkg/config"
	"github.com/robotalks/evlink/pkg/framework"
	"github.com/robotalks/evlink/pkg/journal"
	"github.com/robotalks/evlink/pkg/link"
	"github.com/robotalks/evlink/pkg/mqtt"
	"github.com/robotalks/evlink/pkg/transport"
	"github.com/robotalks/evlink/pkg/transport/dial"
)

// ConnectRetryInterval is the delay between broker connection attempts.
const ConnectRetryInterval = 5 * time.Second

// LinkState is published on the link topic when the link state changes.
type LinkState struct {
	Connected bool   `json:"connected"`
	Time      string `json:"time"`
}

// Service assembles the bridge daemon from a Config.
type Service struct {
	Transport  *transport.Pump
	Link       *link.Link
	Controller *LinkController
	Dispatcher *Dispatcher
	Forwarder  *Forwarder
	Heartbeat  *Heartbeat
	Topics     mqtt.Topics

	// Queue is nil when MQTT is disabled.
	Queue *mqtt.Queue
	// Journal is nil when the journal is disabled.
	Journal *journal.Journal

	publisher Publisher
}

// NewService opens the transport and creates all components.
func NewService(ctx context.Context, conf *config.Config) (*Service, error) {
	pump, err := dial.Open(ctx, conf.Transport.Address)
	if err != nil {
		return nil, err
	}
	s := &Service{
		Transport: pump,
		Topics:    mqtt.Topics{Station: conf.Station.ID, Device: conf.Station.Device},
		publisher: offlinePublisher{},
	}
	if conf.MQTT.Enabled {
		if s.Queue, err = mqtt.NewQueueFromURL(conf.MQTT.URL); err != nil {
			pump.Close()
			return nil, err
		}
		s.Queue.QoS = conf.MQTT.QoS
		s.Queue.PublishTimeout = conf.MQTT.PublishTimeout
		s.publisher = s.Queue
	}
	if conf.Journal.Enabled {
		s.Journal, err = journal.Open(journal.Config{Path: conf.Journal.Path, QueueSize: conf.Journal.QueueSize})
		if err != nil {
			pump.Close()
			return nil, err
		}
	}
	s.build(conf)
	return s, nil
}

func (s *Service) build(conf *config.Config) {
	s.Dispatcher = NewDispatcher(s.publisher)
	opts := []link.Option{
		link.WithParseTimeout(conf.Link.ParseTimeout),
		link.WithLivenessTimeout(conf.Link.LivenessTimeout),
		link.WithOverflowDiscard(conf.Link.OverflowDiscard),
	}
	if s.Journal != nil {
		opts = append(opts, link.WithObserver(s.Journal))
	}
	s.Link = link.NewLink(s.Transport, s.Dispatcher, opts...)
	s.Controller = NewLinkController(s.Link)
	s.Controller.OnStateChange = s.publishLinkState
	s.Dispatcher.Responder = s.Controller
	s.Transport.Notify = s.Controller.Wake
	s.Forwarder = &Forwarder{Topics: s.Topics, Responder: s.Controller}
	s.Heartbeat = &Heartbeat{
		Interval:  conf.Heartbeat.Interval,
		Topics:    s.Topics,
		Publisher: s.publisher,
		Link:      s.Link,
	}
}

// AddToLoop implements framework.LoopAdder.
func (s *Service) AddToLoop(l *framework.Loop) {
	l.Add(s.Controller)
	l.AddRunnable(framework.NamedRun("transport", s.Transport))
	if s.Journal != nil {
		l.AddRunnable(framework.NamedRun("journal", s.Journal))
	}
	if s.Queue != nil {
		l.Add(s.Heartbeat)
		s.Forwarder.Start(s.Queue)
		l.AddRunnable(framework.NamedRun("mqtt", framework.RunFunc(s.runMQTT)))
	}
}

// runMQTT connects the broker, retrying until it succeeds, and disconnects
// when ctx is done. Reconnecting afterwards is left to the client.
func (s *Service) runMQTT(ctx context.Context) error {
	for {
		token := s.Queue.Connect()
		token.Wait()
		err := token.Error()
		if err == nil {
			break
		}
		glog.Warningf("mqtt connect: %v, retry in %v", err, ConnectRetryInterval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ConnectRetryInterval):
		}
	}
	<-ctx.Done()
	s.Forwarder.Close()
	s.Queue.Close()
	return ctx.Err()
}

// Close releases the journal. The transport and the broker connection are
// closed when the loop stops.
func (s *Service) Close() error {
	if s.Journal != nil {
		return s.Journal.Close()
	}
	return nil
}

func (s *Service) publishLinkState(connected bool) {
	if !s.publisher.IsConnected() {
		return
	}
	payload, err := json.Marshal(LinkState{Connected: connected, Time: time.Now().UTC().Format(time.RFC3339)})
	if err != nil {
		glog.Errorf("encode link state: %v", err)
		return
	}
	s.publisher.Publish(s.Topics.Link(), payload, func(err error) {
		if err != nil {
			glog.Warningf("publish link state: %v", err)
		}
	})
}

type offlinePublisher struct{}

func (offlinePublisher) Publish(topic string, payload []byte, done func(error)) {
	done(mqtt.ErrNotConnected)
}

func (offlinePublisher) IsConnected() bool {
	return false
}
