// Package control applies remote commands to a flow.
//
// A command is a JSON object with a name and a data payload:
//
//	{"name": "update_node_status",   "data": {"nodeId": "3", "status": "running"}}
//	{"name": "update_node_progress", "data": {"nodeId": "3", "progress": 0.4}}
//
// Commands only touch display state (status and progress); they never
// change topology. A flow is not safe for concurrent use, so whoever owns
// the flow must serialise calls to [Receiver.Handle].
package control

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/flowmaker/pkg/errors"
	"github.com/matzehuels/flowmaker/pkg/flow"
)

// Command names.
const (
	UpdateNodeStatus   = "update_node_status"
	UpdateNodeProgress = "update_node_progress"
)

// Command is one decoded control message.
type Command struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

type statusData struct {
	NodeID string `json:"nodeId"`
	Status string `json:"status"`
}

type progressData struct {
	NodeID   string   `json:"nodeId"`
	Progress *float64 `json:"progress"`
}

// Decode parses one command.
func Decode(raw []byte) (Command, error) {
	var c Command
	if err := json.Unmarshal(raw, &c); err != nil {
		return Command{}, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode command")
	}
	if c.Name == "" {
		return Command{}, errs.New(errs.ErrCodeInvalidInput, "command has no name")
	}
	return c, nil
}

// Receiver applies commands to one flow.
type Receiver struct {
	flow   *flow.Flow
	logger *log.Logger
}

// NewReceiver returns a receiver for f. A nil logger discards output.
func NewReceiver(f *flow.Flow, logger *log.Logger) *Receiver {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Receiver{flow: f, logger: logger}
}

// Handle decodes and applies one raw command.
func (r *Receiver) Handle(raw []byte) error {
	c, err := Decode(raw)
	if err != nil {
		return err
	}
	return r.Apply(c)
}

// Apply runs a decoded command. Unknown names fail with
// ErrCodeUnsupported; a missing node fails with ErrCodeNodeNotFound and
// leaves the flow untouched.
func (r *Receiver) Apply(c Command) error {
	switch c.Name {
	case UpdateNodeStatus:
		var d statusData
		if err := json.Unmarshal(c.Data, &d); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidFormat, err, "%s payload", c.Name)
		}
		r.logger.Debug("node status", "node", d.NodeID, "status", d.Status)
		return r.flow.SetStatus(d.NodeID, d.Status)

	case UpdateNodeProgress:
		var d progressData
		if err := json.Unmarshal(c.Data, &d); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidFormat, err, "%s payload", c.Name)
		}
		if d.Progress == nil {
			return errs.New(errs.ErrCodeInvalidInput, "%s: progress is required", c.Name)
		}
		r.logger.Debug("node progress", "node", d.NodeID, "progress", *d.Progress)
		return r.flow.SetProgress(d.NodeID, *d.Progress)
	}
	return errs.New(errs.ErrCodeUnsupported, "unknown command %q", c.Name)
}

// Scan reads newline-delimited commands from rd and hands each decoded
// command to fn until rd is exhausted, ctx is done or fn fails. Lines that
// do not decode are logged and skipped.
func Scan(ctx context.Context, rd io.Reader, logger *log.Logger, fn func(Command) error) error {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		c, err := Decode(line)
		if err != nil {
			logger.Warn("skipping control line", "err", err)
			continue
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return sc.Err()
}
