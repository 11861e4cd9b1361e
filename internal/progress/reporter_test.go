package progress

import (
	"bytes"
	"strings"
	"testing"
)

func TestCIReporterPrintsEveryNthAndFailures(t *testing.T) {
	var buf bytes.Buffer
	r := NewCIReporter(&buf, 2)

	r.Start(3, "Rebuilding TaskVectors")
	r.Update(1, 0, "task_1")
	r.Update(2, 0, "task_2")
	r.Update(3, 1, "task_3")
	r.Finish("done: 2 ok, 1 failed")

	out := buf.String()
	if strings.Contains(out, "task_1") {
		t.Errorf("record 1 should not be printed with every=2:\n%s", out)
	}
	for _, want := range []string{
		"Rebuilding TaskVectors: 3 records",
		"[2/3] task_2",
		"[3/3] task_3 failed",
		"done: 2 ok, 1 failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTerminalReporterUpdateBeforeStart(t *testing.T) {
	r := &TerminalReporter{}
	r.Update(1, 0, "ignored")
}
