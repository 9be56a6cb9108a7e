package infrastructure

import (
	"context"
	"time"
)

// runnerCall records one subprocess invocation made through the fake.
type runnerCall struct {
	name    string
	args    []string
	timeout time.Duration
}

// fakeRunner scripts subprocess behavior without spawning anything.
type fakeRunner struct {
	calls []runnerCall
	run   func(call runnerCall) (string, string, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args []string, timeout time.Duration) (string, string, error) {
	call := runnerCall{name: name, args: args, timeout: timeout}
	f.calls = append(f.calls, call)
	if f.run != nil {
		return f.run(call)
	}
	return "", "", nil
}

func (f *fakeRunner) downloadCalls() []runnerCall {
	var out []runnerCall
	for _, c := range f.calls {
		if len(c.args) > 0 && c.args[0] == "--rm-cache-dir" {
			continue
		}
		out = append(out, c)
	}
	return out
}
