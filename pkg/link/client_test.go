package link

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type clientTestEnv struct {
	*linkTestEnv
	client *Client
}

func newClientTestEnv(t *testing.T) *clientTestEnv {
	env := &clientTestEnv{linkTestEnv: newLinkTestEnv(t)}
	env.client = NewClient(env.link)
	return env
}

func (e *clientTestEnv) inject(p ...[]byte) *clientTestEnv {
	e.linkTestEnv.inject(p...)
	return e
}

func (e *clientTestEnv) elapse(d time.Duration) *clientTestEnv {
	e.linkTestEnv.elapse(d)
	return e
}

func (e *clientTestEnv) poll() *clientTestEnv {
	require.NoError(e.t, e.client.Poll(context.Background()))
	return e
}

func expectResult(t *testing.T, cmd *Command) Result {
	select {
	case r := <-cmd.ResultChan():
		return r
	default:
		t.Fatalf("command seq %d not resolved", cmd.RequestSeq())
	}
	return Result{}
}

func expectPending(t *testing.T, cmd *Command) {
	select {
	case r := <-cmd.ResultChan():
		t.Fatalf("command seq %d unexpectedly resolved: %+v", cmd.RequestSeq(), r)
	default:
	}
}

func TestClientPairsResponses(t *testing.T) {
	env := newClientTestEnv(t)
	timeCmd := env.client.Do(0x02, nil)
	wifiCmd := env.client.Do(0x03, nil)
	require.Equal(t, byte(0), timeCmd.RequestSeq())
	require.Equal(t, byte(1), wifiCmd.RequestSeq())
	require.Equal(t, 2, env.client.Pending())

	env.inject(mustEncode(t, 0x83, 1, 1, 1, 0xC4)).poll()
	r := expectResult(t, wifiCmd)
	require.NoError(t, r.Err)
	require.Equal(t, byte(0x83), r.Command)
	require.Equal(t, []byte{1, 1, 0xC4}, r.Payload)
	expectPending(t, timeCmd)

	env.inject(mustEncode(t, 0x82, 0, 7)).poll()
	r = expectResult(t, timeCmd)
	require.NoError(t, r.Err)
	require.Equal(t, []byte{7}, r.Payload)
	require.Equal(t, 0, env.client.Pending())
	require.Empty(t, env.packets)
}

func TestClientAckStatus(t *testing.T) {
	env := newClientTestEnv(t)
	ok := env.client.Do(0x01, []byte(`{}`))
	failed := env.client.Do(0x01, []byte(`{}`))

	env.inject(
		mustEncode(t, AckCommand, failed.RequestSeq(), 0x03),
		mustEncode(t, AckCommand, ok.RequestSeq(), 0x00),
	).poll()

	r := expectResult(t, ok)
	require.NoError(t, r.Err)
	require.Equal(t, byte(0), r.Status)

	r = expectResult(t, failed)
	require.Equal(t, byte(3), r.Status)
	se, isStatus := r.Err.(*StatusError)
	require.True(t, isStatus)
	require.Equal(t, byte(3), se.Status)
}

func TestClientPassesUnpairedPackets(t *testing.T) {
	env := newClientTestEnv(t)
	cmd := env.client.Do(0x02, nil)

	env.inject(
		mustEncode(t, 0x01, 0, 'x'),
		mustEncode(t, 0x85, 0, 't', 0, 'p'),
		mustEncode(t, 0x82, 9),
	).poll()
	require.Equal(t, []Packet{
		{Command: 0x01, Sequence: 0, Payload: []byte{'x'}},
		{Command: 0x85, Sequence: 0, Payload: []byte{'t', 0, 'p'}},
		{Command: 0x82, Sequence: 9},
	}, env.packets)
	expectPending(t, cmd)
}

func TestClientExpiration(t *testing.T) {
	env := newClientTestEnv(t)
	first := env.client.Do(0x02, nil)
	env.elapse(500 * time.Millisecond)
	second := env.client.Do(0x03, nil)

	env.elapse(499 * time.Millisecond).poll()
	expectPending(t, first)

	env.elapse(time.Millisecond).poll()
	require.ErrorIs(t, expectResult(t, first).Err, ErrNoReply)
	expectPending(t, second)

	env.elapse(500 * time.Millisecond).poll()
	require.ErrorIs(t, expectResult(t, second).Err, ErrNoReply)
	require.Equal(t, 0, env.client.Pending())
}

func TestClientSendError(t *testing.T) {
	env := newClientTestEnv(t)
	cmd := env.client.Do(0x01, make([]byte, MaxPayload+1))
	require.ErrorIs(t, expectResult(t, cmd).Err, ErrInvalidParameter)
	require.Equal(t, 0, env.client.Pending())
}

func TestClientNeverBlocksOnResultChan(t *testing.T) {
	env := newClientTestEnv(t)
	unbuffered := make(chan Result)
	replied := env.client.DoWith(0x02, nil, unbuffered)
	expired := env.client.DoWith(0x03, nil, unbuffered)

	done := make(chan struct{})
	go func() {
		defer close(done)
		env.inject(mustEncode(t, 0x82, replied.RequestSeq(), 7)).poll()
		env.elapse(DefaultExpiration).poll()
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("poll blocked on result chan")
	}
	require.Equal(t, 0, env.client.Pending())
	expectPending(t, expired)
}
