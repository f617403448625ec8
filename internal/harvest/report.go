package harvest

import (
	"bytes"
	"encoding/json"

	"github.com/unbound-force/krypton/internal/grade"
)

// Block is one analyzable unit (a function or method) and its
// measured cyclomatic complexity.
type Block struct {
	// Name is the function name, "(*Recv).Method" for methods.
	Name string `json:"name"`

	// Lineno is the line of the declaration.
	Lineno int `json:"lineno"`

	// Complexity is the cyclomatic complexity (>= 0).
	Complexity int `json:"complexity"`
}

// Module holds the result of analyzing one source file: either an
// ordered list of blocks or the error that prevented analysis.
type Module struct {
	// Name identifies the module (the file path as discovered).
	Name string

	// Blocks are in declaration order. Nil when Err is set.
	Blocks []Block

	// Err is the analyzer failure, empty on success.
	Err string
}

// Failed reports whether the module carries an error marker.
func (m Module) Failed() bool {
	return m.Err != ""
}

// Report is the complete complexity measurement for one run. Modules
// are kept in discovery order, which is the iteration order every
// consumer relies on.
type Report struct {
	Modules []Module
}

// Add appends a successfully analyzed module.
func (r *Report) Add(name string, blocks ...Block) {
	if blocks == nil {
		blocks = []Block{}
	}
	r.Modules = append(r.Modules, Module{Name: name, Blocks: blocks})
}

// AddError appends an error marker for a module that could not be
// analyzed.
func (r *Report) AddError(name, msg string) {
	r.Modules = append(r.Modules, Module{Name: name, Err: msg})
}

// BlockCount returns the number of blocks over all analyzed modules.
func (r *Report) BlockCount() int {
	n := 0
	for _, m := range r.Modules {
		n += len(m.Blocks)
	}
	return n
}

// Failures returns the modules carrying an error marker.
func (r *Report) Failures() []Module {
	var out []Module
	for _, m := range r.Modules {
		if m.Failed() {
			out = append(out, m)
		}
	}
	return out
}

// rankedBlock is the wire form of a block in cc_data payloads.
type rankedBlock struct {
	Block
	Rank grade.Grade `json:"rank"`
}

// MarshalJSON encodes the report as a JSON object keyed by module name
// in discovery order. Analyzed modules map to a list of blocks with
// their rank, failed modules to {"error": msg}.
func (r *Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range r.Modules {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		var val []byte
		if m.Failed() {
			val, err = json.Marshal(map[string]string{"error": m.Err})
		} else {
			blocks := make([]rankedBlock, 0, len(m.Blocks))
			for _, b := range m.Blocks {
				blocks = append(blocks, rankedBlock{Block: b, Rank: grade.Rank(float64(b.Complexity))})
			}
			val, err = json.Marshal(blocks)
		}
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
