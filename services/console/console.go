// Package console is a line-oriented operator shell over the bus. It lets
// a bench user inject telemetry and trigger calibration without a
// simulator attached.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/rs/zerolog"

	"cockpit-go/bus"
	"cockpit-go/errcode"
	"cockpit-go/internal/logging"
	"cockpit-go/services/cockpit"
	"cockpit-go/services/telemetry"
	"cockpit-go/types"
)

// Calibration at 20 steps/s over a long dial can take most of a minute.
const requestTimeout = 2 * time.Minute

const helpText = `commands:
  set <FIELD> <value>      publish a telemetry value (number or text)
  press <FIELD>            publish 1
  release <FIELD>          publish 0
  home <gauge>             find zero
  test <gauge>             sweep full range
  recalibrate <gauge>      home then sweep
  status                   show state and gauges
  help                     this text`

type Console struct {
	conn    *bus.Connection
	out     io.Writer
	log     zerolog.Logger
	Timeout time.Duration
}

func New(conn *bus.Connection, out io.Writer, log zerolog.Logger) *Console {
	return &Console{
		conn:    conn,
		out:     out,
		log:     logging.Component(log, "console"),
		Timeout: requestTimeout,
	}
}

// Run executes one command per input line until in is exhausted or ctx is
// cancelled. A blocked read is only noticed after the next line.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	fmt.Fprint(c.out, "> ")
	for sc.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if reply := c.Exec(ctx, sc.Text()); reply != "" {
			fmt.Fprintln(c.out, reply)
		}
		fmt.Fprint(c.out, "> ")
	}
	return sc.Err()
}

// Exec runs a single command line and returns the text to show.
// Errors are reported in the text, never returned.
func (c *Console) Exec(ctx context.Context, line string) string {
	args, err := shlex.Split(line)
	if err != nil {
		return "error: " + err.Error()
	}
	if len(args) == 0 {
		return ""
	}
	cmd, args := strings.ToLower(args[0]), args[1:]
	c.log.Debug().Str("cmd", cmd).Strs("args", args).Msg("exec")

	switch cmd {
	case "help", "?":
		return helpText
	case "set":
		if len(args) != 2 {
			return "usage: set <FIELD> <value>"
		}
		c.publish(args[0], parseValue(args[1]))
		return "ok"
	case "press", "release":
		if len(args) != 1 {
			return "usage: " + cmd + " <FIELD>"
		}
		v := uint16(0)
		if cmd == "press" {
			v = 1
		}
		c.publish(args[0], v)
		return "ok"
	case cockpit.VerbHome, cockpit.VerbTest, cockpit.VerbRecalibrate:
		if len(args) != 1 {
			return "usage: " + cmd + " <gauge>"
		}
		return c.control(ctx, args[0], cmd)
	case "status":
		return c.status(ctx)
	default:
		return fmt.Sprintf("unknown command %q (try help)", cmd)
	}
}

func parseValue(s string) any {
	if n, err := strconv.ParseUint(s, 10, 16); err == nil {
		return uint16(n)
	}
	return s
}

func (c *Console) publish(field string, v any) {
	f := telemetry.Field(strings.ToUpper(field))
	c.conn.Publish(c.conn.NewMessage(telemetry.Topic(f), v, true))
}

func (c *Console) request(ctx context.Context, topic bus.Topic) (*bus.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	m, err := c.conn.RequestWait(ctx, c.conn.NewMessage(topic, nil, false))
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, errcode.Timeout
	}
	return m, err
}

func (c *Console) control(ctx context.Context, gauge, verb string) string {
	m, err := c.request(ctx, cockpit.TopicGaugeControl(gauge, verb))
	if err != nil {
		return "error: " + err.Error()
	}
	switch r := m.Payload.(type) {
	case types.OKReply:
		return "ok"
	case types.ErrorReply:
		return "error: " + r.Error
	default:
		return fmt.Sprintf("error: unexpected reply %T", m.Payload)
	}
}

func (c *Console) status(ctx context.Context) string {
	m, err := c.request(ctx, cockpit.TopicStatus())
	if err != nil {
		return "error: " + err.Error()
	}
	st, ok := m.Payload.(types.CockpitStatus)
	if !ok {
		return fmt.Sprintf("error: unexpected reply %T", m.Payload)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "state %s beat %dms", st.State, st.SinceBeatMs)
	for _, g := range st.Gauges {
		fmt.Fprintf(&b, "\n  %-12s pos %5d target %5d", g.Name, g.Position, g.Target)
		if g.Homing {
			b.WriteString(" homing")
		}
		if g.Testing {
			b.WriteString(" testing")
		}
	}
	return b.String()
}
