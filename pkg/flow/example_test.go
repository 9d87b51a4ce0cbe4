package flow_test

import (
	"fmt"

	"github.com/matzehuels/flowmaker/pkg/flow"
)

func Example() {
	f := flow.New()

	src, _ := flow.NewNode(flow.NodeSpec{Name: "source", Ports: []flow.PortSpec{
		{Direction: flow.Source, DataTypes: []string{"number"}},
	}})
	dst, _ := flow.NewNode(flow.NodeSpec{Name: "sink", Ports: []flow.PortSpec{
		{Direction: flow.Sink, DataTypes: []string{"number"}},
	}})
	f.AddNode(src, 0, 0)
	f.AddNode(dst, 0, 0)

	l := f.Connect(src.ID(), "right-0", dst.ID(), "left-0")
	fmt.Println(l.Key(), dst.Runnable())

	f.AutoLayout(100, 100)
	for _, n := range f.Nodes() {
		x, y := n.Position()
		fmt.Println(n.Name(), x, y)
	}
	// Output:
	// 1:right-0>2:left-0 true
	// source 50 50
	// sink 50 150
}

func ExampleFlow_Subscribe() {
	f := flow.New()
	f.Subscribe(func(e flow.Event) {
		fmt.Println(e.Type, e.NodeID)
	})

	n, _ := flow.NewNode(flow.NodeSpec{ID: "a"})
	f.AddNode(n, 0, 0)
	f.MoveNode("a", 10, 10)
	f.RemoveNode("a")
	// Output:
	// nodeAdded a
	// nodeMoved a
	// nodeRemoved a
}

func ExampleCheckConnection() {
	f := flow.New()
	a, _ := flow.NewNode(flow.NodeSpec{ID: "a", Ports: []flow.PortSpec{{Direction: flow.Source, DataTypes: []string{"number"}}}})
	b, _ := flow.NewNode(flow.NodeSpec{ID: "b", Ports: []flow.PortSpec{{Direction: flow.Sink, DataTypes: []string{"string"}}}})
	f.AddNode(a, 0, 0)
	f.AddNode(b, 0, 0)

	fmt.Println(flow.CheckConnection(f, "a", "right-0", "b", "left-0"))
	fmt.Println(f.Connect("a", "right-0", "b", "left-0") == nil)
	// Output:
	// incompatible data types: [number] -> [string]
	// true
}
