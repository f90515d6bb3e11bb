package control

import (
	"os"
	"path/filepath"
	"testing"
)

// scriptRecordingArgs writes a shell script that appends its arguments to
// a file, so the test can assert what CalibrationEnd passed as the
// success/failure flag.
func scriptRecordingArgs(t *testing.T, outFile string) string {
	t.Helper()
	script := filepath.Join(t.TempDir(), "hook.sh")
	contents := "#!/bin/sh\necho \"$@\" >> " + outFile + "\n"
	if err := os.WriteFile(script, []byte(contents), 0o755); err != nil {
		t.Fatal(err)
	}
	return script
}

func TestHookControllerRunsBeginAndEnd(t *testing.T) {
	dir := t.TempDir()
	log := filepath.Join(dir, "calls.log")
	begin := scriptRecordingArgs(t, log)
	end := scriptRecordingArgs(t, log)

	h := NewHookController(begin, end)
	h.CalibrationBegin()
	h.CalibrationEnd(true)
	h.CalibrationEnd(false)

	data, err := os.ReadFile(log)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	want := "\n1\n0\n"
	if got != want {
		t.Fatalf("hook invocations = %q, want %q", got, want)
	}
}

func TestHookControllerSkipsUnconfiguredHooks(t *testing.T) {
	h := NewHookController("", "")
	// Should not panic or attempt to exec an empty command.
	h.CalibrationBegin()
	h.CalibrationEnd(true)
}

func TestNoopControllerIsAController(t *testing.T) {
	var c Controller = Noop{}
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	if err := c.Stop(); err != nil {
		t.Fatal(err)
	}
}
