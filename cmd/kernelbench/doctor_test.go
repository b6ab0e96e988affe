package main

import (
	"strings"
	"testing"

	"github.com/example/go-kernel-bench/internal/doctor"
	"github.com/example/go-kernel-bench/internal/testutil"
)

func TestDoctor_Passes(t *testing.T) {
	img := testutil.WritePNG(t, t.TempDir(), "gray.png", testutil.GrayImage(32, 24))

	stdout, stderr, err := execute(t, "doctor", "--image", img, "--examples-dir", "../../examples")
	if err != nil {
		t.Fatalf("doctor: %v\nstderr: %s", err, stderr)
	}

	for _, want := range []string{"32x24 gray", "kernels: ", "doctor checks passed"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout)
		}
	}

	if strings.Contains(stdout, doctor.FailMark) {
		t.Errorf("unexpected failure mark:\n%s", stdout)
	}
}

func TestDoctor_ReportsMissingImage(t *testing.T) {
	_, stderr, err := execute(t, "doctor", "--image", t.TempDir()+"/none.png", "--examples-dir", "../../examples")
	if err == nil {
		t.Fatal("expected doctor to fail without the canonical image")
	}

	if !strings.Contains(stderr, "FAIL: canonical image") {
		t.Errorf("stderr = %q; want a canonical image failure", stderr)
	}
}
