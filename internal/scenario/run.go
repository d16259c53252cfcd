package scenario

import (
	"fmt"
	"strings"

	"capsule/capsuleos/kernel"
	"capsule/capsuleos/proto"
)

// Result records the outcome of one step.
type Result struct {
	Process  string
	Step     int
	Op       Op
	Return   kernel.SyscallReturn
	Mismatch string
}

func (r Result) String() string {
	s := fmt.Sprintf("%s#%d %s: %s", r.Process, r.Step, r.Op, r.Return)
	if r.Mismatch != "" {
		s += " (" + r.Mismatch + ")"
	}
	return s
}

// Report collects step results in execution order.
type Report struct {
	Results []Result
}

// Failures returns the results whose outcome differed from the expectation.
func (r *Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Mismatch != "" {
			out = append(out, res)
		}
	}
	return out
}

func (r *Report) String() string {
	var b strings.Builder
	for _, res := range r.Results {
		b.WriteString(res.String())
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%d steps, %d failures\n", len(r.Results), len(r.Failures()))
	return b.String()
}

// Install loads every process of s into k. Results are appended to the
// returned report as the kernel runs the processes.
func (s *Scenario) Install(k *kernel.Kernel) (*Report, error) {
	rep := &Report{}
	for _, p := range s.Processes {
		if _, err := k.LoadProcess(p.Name, &app{proc: p, report: rep}); err != nil {
			return nil, err
		}
	}
	return rep, nil
}

type app struct {
	proc   Process
	next   int
	report *Report
}

func (a *app) Step(ctx *kernel.Context) {
	if a.next >= len(a.proc.Steps) {
		ctx.Exit(0)
		return
	}
	st := a.proc.Steps[a.next]
	a.next++
	a.run(ctx, a.next, st)
}

func (a *app) run(ctx *kernel.Context, n int, st Step) {
	res := Result{Process: a.proc.Name, Step: n, Op: st.Op}
	defer func() { a.report.Results = append(a.report.Results, res) }()

	switch st.Op {
	case OpAllow:
		data, _ := st.data()
		if len(data) > 0 {
			mem := ctx.Memory()
			if uint64(st.Offset)+uint64(len(data)) > uint64(len(mem)) {
				res.Mismatch = fmt.Sprintf("payload of %d bytes does not fit process memory", len(data))
				return
			}
			copy(mem[st.Offset:], data)
		}
		length := uint32(len(data))
		if st.Length != nil {
			length = *st.Length
		}
		res.Return = ctx.AllowReadOnly(st.driver(), st.Index, st.Offset, length)
	case OpPrint:
		res.Return = ctx.Command(st.driver(), uint32(proto.CmdPrint), 0, 0)
	case OpCount:
		res.Return = ctx.Command(st.driver(), uint32(proto.CmdCount), 0, 0)
	case OpAck:
		res.Return = ctx.Command(st.driver(), uint32(proto.CmdAck), 0, 0)
	case OpCommand:
		res.Return = ctx.Command(st.driver(), st.Index, 0, 0)
	case OpSubscribe:
		res.Return = ctx.Subscribe(st.driver(), st.Index)
	case OpFault:
		res.Return = kernel.ReturnSuccess()
		panic(fmt.Sprintf("scripted fault in %s", a.proc.Name))
	case OpExit:
		res.Return = kernel.ReturnSuccess()
		ctx.Exit(st.Index)
		return
	}

	got := "SUCCESS"
	if !res.Return.IsSuccess() {
		got = res.Return.Code().String()
	}
	if want := st.expect(); got != want {
		res.Mismatch = fmt.Sprintf("got %s, want %s", got, want)
		return
	}
	if st.Count != nil {
		if n, ok := res.Return.U32(); !ok || n != *st.Count {
			res.Mismatch = fmt.Sprintf("got count %d, want %d", n, *st.Count)
		}
	}
}
