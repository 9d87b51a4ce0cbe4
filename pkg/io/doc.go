// Package io reads and writes flow documents.
//
// # Overview
//
// A flow document lists nodes (with their ports and positions) and the
// links between them. The same document can be written as JSON, TOML or
// YAML; the format is picked from the file extension.
//
// # JSON Format
//
//	{
//	  "nodes": [
//	    {"id": "src", "name": "Source", "x": 0, "y": 0,
//	     "ports": [{"direction": "source", "types": ["number"]}]},
//	    {"id": "sum", "name": "Sum",
//	     "ports": [{"id": "in", "direction": "sink", "types": ["number"]}]}
//	  ],
//	  "links": [
//	    {"from": "src", "from_port": "right-0", "to": "sum", "to_port": "in"}
//	  ]
//	}
//
// The TOML form uses [[nodes]], [[nodes.ports]] and [[links]] tables with
// the same keys.
//
// # Node Fields
//
// Optional:
//   - id: assigned by the flow when omitted ("1", "2", ...)
//   - name, x, y, meta
//   - ports: each with direction ("source"/"sink", also "out"/"in"),
//     optional id (defaults to left-N / right-N), optional flag and data
//     types (empty means any)
//
// # Links
//
// Links are applied in document order through [flow.Flow.Connect]. A link
// the validator rejects does not fail the build; it is reported in the
// returned [Rejection] list so callers such as the check command can show
// it. A later link into an occupied sink port replaces the earlier one.
//
// # Export
//
// [FromFlow] captures the current state of a flow, positions included, so
// a document can be laid out and written back.
package io
