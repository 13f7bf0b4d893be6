// Package sh provides the interactive diagnostic shell of linkctl.
package sh

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/evlink/pkg/bridge"
	"github.com/robotalks/evlink/pkg/config"
	fx "github.com/robotalks/evlink/pkg/framework"
	"github.com/robotalks/evlink/pkg/journal"
	"github.com/robotalks/evlink/pkg/link"
	"github.com/robotalks/evlink/pkg/protocol"
	"github.com/robotalks/evlink/pkg/transport/dial"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell   *ishell.Shell
	Config  *config.Config
	Journal *journal.Journal
	Session *Session
}

// Session is a connected link running on its own loop.
type Session struct {
	Ctx     context.Context
	Cancel  func()
	Address string
	Timeout time.Duration

	Loop       *fx.Loop
	Client     *link.Client
	Controller *bridge.LinkController
}

// ErrNotConnected is reported by commands requiring a session.
var ErrNotConnected = errors.New("not connected")

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *config.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// SessionFrom gets the current Session from ishell context.
func SessionFrom(c *ishell.Context) *Session {
	return ShellFrom(c).Session
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Session == nil {
			c.Err(ErrNotConnected)
			return
		}
		fn(c)
	}
}

// Print prints v as JSON when OutputJSON is set, otherwise as text.
func Print(c *ishell.Context, v interface{}, text string) {
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text)
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// WithJournal sets the journal recording the traffic of sessions.
func (s *Shell) WithJournal(j *journal.Journal) *Shell {
	s.Journal = j
	return s
}

// Connect opens the transport at addr and starts a session.
func (s *Shell) Connect(addr string) error {
	ctx, cancel := context.WithCancel(context.Background())
	pump, err := dial.Open(ctx, addr)
	if err != nil {
		cancel()
		return err
	}
	sess := s.newSession(ctx, cancel, addr, pump)
	pump.Notify = sess.Controller.Wake
	sess.Loop.AddRunnable(fx.NamedRun("transport", pump))
	s.start(sess)
	return nil
}

// Attach starts a session over an already open transport.
func (s *Shell) Attach(name string, t link.Transport) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	sess := s.newSession(ctx, cancel, name, t)
	s.start(sess)
	return sess
}

func (s *Shell) newSession(ctx context.Context, cancel func(), addr string, t link.Transport) *Session {
	sess := &Session{Ctx: ctx, Cancel: cancel, Address: addr, Timeout: s.Config.Link.CommandTimeout}
	opts := []link.Option{
		link.WithParseTimeout(s.Config.Link.ParseTimeout),
		link.WithLivenessTimeout(s.Config.Link.LivenessTimeout),
		link.WithOverflowDiscard(s.Config.Link.OverflowDiscard),
	}
	if s.Journal != nil {
		opts = append(opts, link.WithObserver(s.Journal))
	}
	l := link.NewLink(t, link.HandlePacketFunc(s.unsolicited), opts...)
	sess.Client = link.NewClient(l)
	sess.Client.Expiration = sess.Timeout
	sess.Controller = bridge.NewLinkController(l)
	sess.Controller.Poller = sess.Client

	sess.Loop = fx.NewLoop()
	sess.Loop.Interval = s.Config.Loop.Interval
	sess.Loop.Add(sess.Controller)
	if s.Journal != nil {
		sess.Loop.AddRunnable(fx.NamedRun("journal", s.Journal))
	}
	return sess
}

func (s *Shell) start(sess *Session) {
	s.Disconnect()
	s.Session = sess
	go sess.Loop.Run(sess.Ctx)
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", sess.Address))
}

// Disconnect disconnects current session.
func (s *Shell) Disconnect() {
	if s.Session != nil {
		s.Session.Cancel()
		s.Session = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// unsolicited prints packets not paired with a command, e.g. MQTT messages
// forwarded by the bridge. It runs on the loop goroutine.
func (s *Shell) unsolicited(ctx context.Context, pkt *link.Packet) {
	if pkt.Command == protocol.RspMQTTReceived {
		var msg protocol.MQTTReceived
		if err := msg.UnmarshalBinary(pkt.Payload); err == nil {
			s.Shell.Printf("<< %s %s: %s\n", protocol.CommandName(pkt.Command), msg.Topic, msg.Payload)
			return
		}
	}
	s.Shell.Printf("<< %s %s\n", protocol.CommandName(pkt.Command), pkt)
}

// Exec runs fn with the link on the session loop and waits for it.
func (s *Session) Exec(fn func(*link.Link)) error {
	done := make(chan struct{})
	s.Controller.Exec(func(l *link.Link) {
		fn(l)
		close(done)
	})
	select {
	case <-done:
		return nil
	case <-s.Ctx.Done():
		return s.Ctx.Err()
	case <-time.After(s.Timeout):
		return context.DeadlineExceeded
	}
}

// Request sends a command and waits for its response.
func (s *Session) Request(cmd byte, payload []byte) (link.Result, error) {
	ch := make(chan link.Result, 1)
	s.Controller.Exec(func(*link.Link) {
		s.Client.DoWith(cmd, payload, ch)
	})
	select {
	case res := <-ch:
		return res, res.Err
	case <-s.Ctx.Done():
		return link.Result{}, s.Ctx.Err()
	case <-time.After(s.Timeout + time.Second):
		// the client expires the command first unless the loop is stuck.
		return link.Result{}, context.DeadlineExceeded
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.Transport.Address != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.Transport.Address)
		}
		if err := s.Connect(s.Config.Transport.Address); err != nil {
			glog.Exitf("connect %q failed: %v", s.Config.Transport.Address, err)
		}
	}
	defer s.Disconnect()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			glog.Exit(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	glog.Exit("command expected")
}

var (
	// ConnectCmd opens a transport.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "ADDRESS",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			addr := s.Config.Transport.Address
			if len(c.Args) > 0 {
				addr = c.Args[0]
			}
			if err := s.Connect(addr); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd closes the current session.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	conf, err := config.Load()
	if err != nil {
		glog.Exit(err)
	}
	s := New(conf).WithAutoConnect(true)
	if conf.Journal.Enabled {
		j, err := journal.Open(journal.Config{Path: conf.Journal.Path, QueueSize: conf.Journal.QueueSize})
		if err != nil {
			glog.Exit(err)
		}
		defer j.Close()
		s.WithJournal(j)
	}
	s.Run(flag.Args()...)
}
