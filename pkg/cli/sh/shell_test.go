package sh

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/evlink/pkg/bridge"
	"github.com/robotalks/evlink/pkg/config"
	fx "github.com/robotalks/evlink/pkg/framework"
	"github.com/robotalks/evlink/pkg/link"
	"github.com/robotalks/evlink/pkg/protocol"
	"github.com/robotalks/evlink/pkg/transport"
)

type testPublisher struct {
	topics []string
	lock   sync.Mutex
}

func (p *testPublisher) Publish(topic string, payload []byte, done func(error)) {
	p.lock.Lock()
	p.topics = append(p.topics, topic)
	p.lock.Unlock()
	done(nil)
}

func (p *testPublisher) IsConnected() bool {
	return true
}

func (p *testPublisher) published() []string {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]string(nil), p.topics...)
}

var testTime = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func testConfig(t *testing.T) *config.Config {
	conf, err := config.LoadFrom("", nil)
	require.NoError(t, err)
	conf.Link.CommandTimeout = 200 * time.Millisecond
	conf.Loop.Interval = time.Millisecond
	return conf
}

// startBridge runs a bridge dispatcher on the other end of the pipe.
func startBridge(t *testing.T, end link.Transport) *testPublisher {
	pub := &testPublisher{}
	d := bridge.NewDispatcher(pub)
	d.Clock = func() time.Time { return testTime }
	ctl := bridge.NewLinkController(link.NewLink(end, d))
	d.Responder = ctl
	loop := fx.NewLoop().Add(ctl)
	loop.Interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go loop.Run(ctx)
	return pub
}

func TestSessionRequest(t *testing.T) {
	shellEnd, bridgeEnd := transport.Pipe()
	pub := startBridge(t, bridgeEnd)

	s := New(testConfig(t))
	sess := s.Attach("pipe", shellEnd)
	defer s.Disconnect()
	require.Same(t, sess, s.Session)

	res, err := sess.Request(protocol.CmdGetTime, nil)
	require.NoError(t, err)
	require.Equal(t, protocol.RspTimeData, res.Command)
	var data protocol.TimeData
	require.NoError(t, data.UnmarshalBinary(res.Payload))
	require.Equal(t, uint32(testTime.Unix()), data.Unix)

	payload, err := protocol.MQTTPublish{Topic: "ocpp/s/d/status/1", Data: "{}"}.MarshalBinary()
	require.NoError(t, err)
	res, err = sess.Request(protocol.CmdMQTTPublish, payload)
	require.NoError(t, err)
	require.Equal(t, link.AckCommand, res.Command)
	require.Equal(t, protocol.StatusSuccess, res.Status)
	require.Equal(t, []string{"ocpp/s/d/status/1"}, pub.published())

	res, err = sess.Request(protocol.CmdOTARequest, nil)
	require.Error(t, err)
	require.Equal(t, protocol.StatusInvalid, res.Status)

	var st link.Status
	require.NoError(t, sess.Exec(func(l *link.Link) { st = l.Status() }))
	require.True(t, st.Connected)
	require.Equal(t, uint32(3), st.RxPackets)
	require.Equal(t, uint32(3), st.TxPackets)
}

func TestSessionNoReply(t *testing.T) {
	shellEnd, _ := transport.Pipe()
	s := New(testConfig(t))
	sess := s.Attach("pipe", shellEnd)
	defer s.Disconnect()

	_, err := sess.Request(protocol.CmdGetTime, nil)
	require.Equal(t, link.ErrNoReply, err)
}

func TestDisconnect(t *testing.T) {
	shellEnd, _ := transport.Pipe()
	s := New(testConfig(t))
	sess := s.Attach("pipe", shellEnd)
	s.Disconnect()
	require.Nil(t, s.Session)
	require.Equal(t, context.Canceled, sess.Ctx.Err())
}
