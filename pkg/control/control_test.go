package control

import (
	"context"
	"strings"
	"testing"

	errs "github.com/matzehuels/flowmaker/pkg/errors"
	"github.com/matzehuels/flowmaker/pkg/flow"
)

func newFlow(t *testing.T) *flow.Flow {
	t.Helper()
	f := flow.New()
	n, _ := flow.NewNode(flow.NodeSpec{ID: "n1"})
	if _, err := f.AddNode(n, 0, 0); err != nil {
		t.Fatal(err)
	}
	return f
}

func TestHandle(t *testing.T) {
	f := newFlow(t)
	r := NewReceiver(f, nil)

	var events []flow.EventType
	f.Subscribe(func(e flow.Event) { events = append(events, e.Type) })

	if err := r.Handle([]byte(`{"name":"update_node_status","data":{"nodeId":"n1","status":"running"}}`)); err != nil {
		t.Fatalf("status: %v", err)
	}
	if err := r.Handle([]byte(`{"name":"update_node_progress","data":{"nodeId":"n1","progress":0.25}}`)); err != nil {
		t.Fatalf("progress: %v", err)
	}

	n, _ := f.Node("n1")
	if n.Status() != "running" || n.Progress() != 0.25 {
		t.Errorf("status = %q progress = %v", n.Status(), n.Progress())
	}
	if len(events) != 2 {
		t.Errorf("events = %v, want two status events", events)
	}
}

func TestHandleErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		code errs.Code
	}{
		{"malformed", `{"name":`, errs.ErrCodeInvalidFormat},
		{"no name", `{"data":{}}`, errs.ErrCodeInvalidInput},
		{"unknown command", `{"name":"delete_everything","data":{}}`, errs.ErrCodeUnsupported},
		{"unknown node", `{"name":"update_node_status","data":{"nodeId":"zz","status":"x"}}`, errs.ErrCodeNodeNotFound},
		{"bad payload", `{"name":"update_node_progress","data":{"nodeId":"n1","progress":"half"}}`, errs.ErrCodeInvalidFormat},
		{"missing progress", `{"name":"update_node_progress","data":{"nodeId":"n1"}}`, errs.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFlow(t)
			err := NewReceiver(f, nil).Handle([]byte(tt.raw))
			if !errs.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
			n, _ := f.Node("n1")
			if n.Status() != "" || n.Progress() != 0 {
				t.Error("failed command changed the node")
			}
		})
	}
}

func TestScan(t *testing.T) {
	input := strings.Join([]string{
		`{"name":"update_node_status","data":{"nodeId":"n1","status":"a"}}`,
		``,
		`not json`,
		`{"name":"update_node_status","data":{"nodeId":"n1","status":"b"}}`,
	}, "\n")

	var names []string
	err := Scan(context.Background(), strings.NewReader(input), nil, func(c Command) error {
		names = append(names, c.Name)
		return nil
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("decoded %d commands, want 2", len(names))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Scan(ctx, strings.NewReader(input), nil, func(Command) error { return nil }); err != context.Canceled {
		t.Errorf("cancelled scan: err = %v", err)
	}
}
