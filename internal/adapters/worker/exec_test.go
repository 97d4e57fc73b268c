package worker

import (
	"context"
	"strings"
	"testing"

	"github.com/axiomantic/spellbook/internal/models"
)

func TestNoCommandConfigured(t *testing.T) {
	a := NewAdapter("")
	if _, err := a.Verify(context.Background(), "/tmp/project"); err == nil {
		t.Fatal("expected error with no command configured")
	}
}

func TestVerify(t *testing.T) {
	a := NewAdapter(`echo '{"Passed":false,"Output":"2 tests failed","FailureCategory":"tests"}'`)

	result, err := a.Verify(context.Background(), "/tmp/project")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if result.Passed || result.FailureCategory != "tests" {
		t.Errorf("result = %+v", result)
	}
}

func TestResearch(t *testing.T) {
	a := NewAdapter(`echo '[{"Question":"where is auth wired?","Answer":"middleware.go","Confidence":"HIGH"}]'`)

	findings, err := a.Research(context.Background(), []string{"where is auth wired?"})
	if err != nil {
		t.Fatalf("Research failed: %v", err)
	}
	if len(findings) != 1 || findings[0].Confidence != models.ConfidenceHigh {
		t.Errorf("findings = %+v", findings)
	}
}

func TestRequestOnStdin(t *testing.T) {
	// The command only succeeds when the JSON envelope names the
	// capability, proving the request arrived on stdin.
	a := NewAdapter(`grep -q '"capability":"verify"' && echo '{"Passed":true}'`)

	result, err := a.Verify(context.Background(), "/tmp/project")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !result.Passed {
		t.Errorf("result = %+v", result)
	}
}

func TestCommandFailure(t *testing.T) {
	a := NewAdapter(`echo "worker exploded" >&2; exit 3`)

	_, err := a.Verify(context.Background(), "/tmp/project")
	if err == nil {
		t.Fatal("expected error for failing command")
	}
	if !strings.Contains(err.Error(), "worker exploded") {
		t.Errorf("err = %v, want stderr included", err)
	}
}

func TestMalformedOutput(t *testing.T) {
	a := NewAdapter(`echo "not json"`)

	_, err := a.Verify(context.Background(), "/tmp/project")
	if err == nil || !strings.Contains(err.Error(), "malformed") {
		t.Fatalf("err = %v, want malformed output error", err)
	}
}
