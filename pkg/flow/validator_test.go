package flow

import (
	"errors"
	"testing"
)

func TestCheckConnection(t *testing.T) {
	f := New()
	addNode(t, f, "num", 0, 0, out("number"))
	addNode(t, f, "str", 0, 0, in("string"), out("string", "number"))
	addNode(t, f, "any", 0, 0, in())
	addNode(t, f, "mixed", 0, 0, in("bool", "number"))

	tests := []struct {
		name               string
		src, srcP, dst, dP string
		want               error
	}{
		{"matching type", "str", "right-0", "mixed", "left-0", nil},
		{"any sink", "num", "right-0", "any", "left-0", nil},
		{"shared type", "num", "right-0", "mixed", "left-0", nil},
		{"type mismatch", "num", "right-0", "str", "left-0", ErrTypeMismatch},
		{"unknown source node", "ghost", "right-0", "any", "left-0", ErrUnknownNode},
		{"unknown sink node", "num", "right-0", "ghost", "left-0", ErrUnknownNode},
		{"unknown port", "num", "right-9", "any", "left-0", ErrUnknownPort},
		{"sink used as source", "any", "left-0", "mixed", "left-0", ErrWrongDirection},
		{"source used as sink", "num", "right-0", "str", "right-0", ErrWrongDirection},
		{"node check precedes direction", "ghost", "left-0", "num", "right-0", ErrUnknownNode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckConnection(f, tt.src, tt.srcP, tt.dst, tt.dP)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("CheckConnection = %v, want nil", err)
				}
			} else if !errors.Is(err, tt.want) {
				t.Fatalf("CheckConnection = %v, want %v", err, tt.want)
			}
			if got := IsConnectable(f, tt.src, tt.srcP, tt.dst, tt.dP); got != (tt.want == nil) {
				t.Errorf("IsConnectable = %v", got)
			}
		})
	}

	if f.LinkCount() != 0 {
		t.Error("validation must not create links")
	}
}

func TestCheckConnectionIgnoresOccupancy(t *testing.T) {
	f := New()
	addNode(t, f, "a", 0, 0, out())
	addNode(t, f, "b", 0, 0, out())
	addNode(t, f, "c", 0, 0, in())
	connect(t, f, "a", "right-0", "c", "left-0")

	if !IsConnectable(f, "b", "right-0", "c", "left-0") {
		t.Error("an occupied sink should still accept a replacement")
	}
}
