package solver

import (
	"context"
	"os"
)

// FakeCall records one Run invocation against a FakeCommandRunner.
type FakeCall struct {
	Name string
	Args []string
}

// FakeCommandRunner is a CommandRunner stub for tests: it optionally writes
// the requested output file instead of actually invoking a solver binary.
type FakeCommandRunner struct {
	ProduceOutput bool
	WriteContent  string
	Calls         []FakeCall
}

// Run records the call and, if ProduceOutput is set, writes WriteContent
// (or a minimal empty document) to the last argument, matching the solver's
// `<input> <output>` invocation convention.
func (f *FakeCommandRunner) Run(ctx context.Context, name string, args []string, stdin string) (string, string, error) {
	f.Calls = append(f.Calls, FakeCall{Name: name, Args: append([]string(nil), args...)})
	if !f.ProduceOutput || len(args) == 0 {
		return "", "", nil
	}
	content := f.WriteContent
	if content == "" {
		content = "<FramesTransmission></FramesTransmission>"
	}
	outputPath := args[len(args)-1]
	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return "", "", err
	}
	return "", "", nil
}
