package shell

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/solar3s/tivalink/tiva"
)

// Shell provides an ishell backed console for a tiva.Box.
type Shell struct {
	OutputJSON bool

	Shell *ishell.Shell
	Box   *tiva.Box
}

const (
	shellKey     = "$shell"
	closedPrompt = "[closed] > "
)

var commands = []*ishell.Cmd{
	&ConnectCmd,
	&DisconnectCmd,
	&TimeCmd,
	&MessageCmd,
	&PortsCmd,
	&StatusCmd,
}

// New creates a new shell driving box.
func New(box *tiva.Box) *Shell {
	s := &Shell{
		Shell: ishell.New(),
		Box:   box,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Printer returns a sink printing into the console.
func (s *Shell) Printer() *Printer {
	return &Printer{Println: s.Shell.Println, JSON: s.OutputJSON}
}

// Run blocks until the user exits the console.
func (s *Shell) Run() {
	s.updatePrompt()
	s.Shell.Run()
}

func (s *Shell) Close() {
	s.Shell.Close()
}

func (s *Shell) updatePrompt() {
	s.Shell.SetPrompt(prompt(s.Box.State(), s.Box.Port()))
}

func prompt(state tiva.State, port string) string {
	if state != tiva.Open {
		return closedPrompt
	}
	return fmt.Sprintf("[%s] > ", port)
}

// Printer is a tiva.Sink writing one line per event.
type Printer struct {
	Println func(a ...interface{})
	JSON    bool
}

func (p *Printer) OnTelemetry(t tiva.Telemetry) {
	if p.JSON {
		out, err := json.Marshal(t)
		if err == nil {
			p.Println(string(out))
			return
		}
	}
	p.Println(FormatTelemetry(t))
}

func (p *Printer) OnConnectionError(message string) {
	p.Println("error:", message)
}

// FormatTelemetry renders t the way the board display does.
func FormatTelemetry(t tiva.Telemetry) string {
	return fmt.Sprintf("%s  reading=%-5s button=%s", t.Time, t.Reading, t.Button)
}

// joinArgs restores a message split by the shell's tokenizer.
func joinArgs(args []string) string {
	return strings.Join(args, " ")
}

var (
	// ConnectCmd opens a serial port.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "PORT",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("usage: connect PORT"))
				return
			}
			if err := s.Box.Connect(c.Args[0]); err != nil {
				c.Err(err)
				return
			}
			s.updatePrompt()
		},
	}

	// DisconnectCmd closes the current port.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if err := s.Box.Disconnect(); err != nil {
				c.Err(err)
			}
			s.updatePrompt()
		},
	}

	// TimeCmd sets the board clock, to the host's without argument.
	TimeCmd = ishell.Cmd{
		Name:    "time",
		Aliases: []string{"t"},
		Help:    "[HH:MM:SS]",
		Func: func(c *ishell.Context) {
			if err := ShellFrom(c).Box.SendTimeSet(joinArgs(c.Args)); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	}

	// MessageCmd shows a 3 characters message on the board.
	MessageCmd = ishell.Cmd{
		Name:    "msg",
		Aliases: []string{"m"},
		Help:    "TEXT",
		Func: func(c *ishell.Context) {
			if err := ShellFrom(c).Box.SendMessage(joinArgs(c.Args)); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	}

	// PortsCmd lists serial ports.
	PortsCmd = ishell.Cmd{
		Name:    "ports",
		Aliases: []string{"list", "l"},
		Func: func(c *ishell.Context) {
			ports, err := tiva.ListPorts()
			if err != nil {
				c.Err(err)
				return
			}
			if len(ports) == 0 {
				c.Println("No serial ports found")
				return
			}
			for _, p := range ports {
				c.Println(p)
			}
		},
	}

	// StatusCmd prints connection state.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"s"},
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			c.Println(FormatStatus(s.Box))
		},
	}
)

// FormatStatus describes box connection in one line.
func FormatStatus(box *tiva.Box) string {
	if box.State() != tiva.Open {
		return box.State().String()
	}
	last := box.Conn.LastActivity()
	if last.IsZero() {
		return fmt.Sprintf("%s %s, no telemetry yet", box.State(), box.Port())
	}
	return fmt.Sprintf("%s %s, last telemetry at %s", box.State(), box.Port(), last.Format(tiva.TimeLayout))
}

var _ tiva.Sink = (*Printer)(nil)
