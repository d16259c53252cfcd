// Package scenario describes scripted processes in YAML and runs them against
// the print driver.
//
// A scenario looks like:
//
//	processes:
//	  - name: alice
//	    steps:
//	      - op: allow
//	        text: "hello"
//	      - op: print
//	      - op: count
//	        count: 5
//	      - op: command
//	        index: 3
//	        expect: NOSUPPORT
//
// Each step runs in its own scheduling quantum, so steps of different
// processes interleave round-robin.
package scenario

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"capsule/capsuleos/kernel"
	"capsule/capsuleos/proto"

	"gopkg.in/yaml.v3"
)

// Op names a step operation.
type Op string

const (
	OpAllow     Op = "allow"
	OpPrint     Op = "print"
	OpCount     Op = "count"
	OpAck       Op = "ack"
	OpCommand   Op = "command"
	OpSubscribe Op = "subscribe"
	OpFault     Op = "fault"
	OpExit      Op = "exit"
)

// Scenario is a set of processes to load.
type Scenario struct {
	Processes []Process `yaml:"processes"`
}

// Process is one scripted process.
type Process struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one syscall (or fault) issued by a process.
type Step struct {
	Op     Op      `yaml:"op"`
	Driver *uint32 `yaml:"driver,omitempty"`
	Text   string  `yaml:"text,omitempty"`
	Hex    string  `yaml:"hex,omitempty"`
	Repeat int     `yaml:"repeat,omitempty"`
	Offset uint32  `yaml:"offset,omitempty"`
	Length *uint32 `yaml:"length,omitempty"`
	Index  uint32  `yaml:"index,omitempty"`
	Expect string  `yaml:"expect,omitempty"`
	Count  *uint32 `yaml:"count,omitempty"`
}

// Parse decodes and validates a scenario.
func Parse(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ParseBytes decodes and validates a scenario held in memory.
func ParseBytes(b []byte) (*Scenario, error) {
	return Parse(bytes.NewReader(b))
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Validate checks ops, expected codes and payload encodings.
func (s *Scenario) Validate() error {
	if len(s.Processes) == 0 {
		return fmt.Errorf("scenario has no processes")
	}
	for _, p := range s.Processes {
		if p.Name == "" {
			return fmt.Errorf("process without name")
		}
		for i, st := range p.Steps {
			if err := st.validate(); err != nil {
				return fmt.Errorf("%s step %d: %w", p.Name, i+1, err)
			}
		}
	}
	return nil
}

func (st Step) validate() error {
	switch st.Op {
	case OpAllow, OpPrint, OpCount, OpAck, OpCommand, OpSubscribe, OpFault, OpExit:
	default:
		return fmt.Errorf("unknown op %q", st.Op)
	}
	if st.Text != "" && st.Hex != "" {
		return fmt.Errorf("text and hex are exclusive")
	}
	if _, err := st.data(); err != nil {
		return err
	}
	if st.Expect != "" && st.Expect != "SUCCESS" {
		if _, ok := kernel.ParseErrorCode(st.Expect); !ok {
			return fmt.Errorf("unknown expected result %q", st.Expect)
		}
	}
	if st.Count != nil && st.Op != OpCount {
		return fmt.Errorf("count is only valid for op %q", OpCount)
	}
	return nil
}

// data returns the bytes an allow step writes into process memory.
func (st Step) data() ([]byte, error) {
	var unit []byte
	if st.Hex != "" {
		b, err := hex.DecodeString(strings.ReplaceAll(st.Hex, " ", ""))
		if err != nil {
			return nil, fmt.Errorf("hex payload: %w", err)
		}
		unit = b
	} else {
		unit = []byte(st.Text)
	}
	if st.Repeat > 1 {
		return bytes.Repeat(unit, st.Repeat), nil
	}
	return unit, nil
}

func (st Step) driver() uint32 {
	if st.Driver != nil {
		return *st.Driver
	}
	return proto.DriverPrint
}

func (st Step) expect() string {
	if st.Expect == "" {
		return "SUCCESS"
	}
	return st.Expect
}
