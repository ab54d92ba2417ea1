package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestPrinter() (*Printer, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	p := NewPrinter(PrinterOptions{Colors: false, Out: &stdout, Err: &stderr})
	return p, &stdout, &stderr
}

func TestResolveColors(t *testing.T) {
	t.Setenv("TERM", "xterm")
	assert.True(t, ResolveColors(true))
	assert.False(t, ResolveColors(false))

	t.Setenv("TERM", "dumb")
	assert.False(t, ResolveColors(true))
}

func TestResolveColors_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.False(t, ResolveColors(true))
}

func TestPrinter_PlainOutput(t *testing.T) {
	p, stdout, stderr := newTestPrinter()

	p.Info("fetched %d users", 3)
	p.Success("user %s added", "a@x.com")
	p.Warning("team %s not found", "eng")
	p.Error("delete failed")

	assert.Contains(t, stdout.String(), "fetched 3 users\n")
	assert.Contains(t, stdout.String(), "[OK] user a@x.com added\n")
	assert.Contains(t, stderr.String(), "[WARN] team eng not found\n")
	assert.Contains(t, stderr.String(), "[ERROR] delete failed\n")
}

func TestPrinter_Header(t *testing.T) {
	p, stdout, _ := newTestPrinter()
	p.Header("Sync plan")
	assert.Equal(t, "\nSync plan\n---------\n", stdout.String())
}

func TestPrinter_Change(t *testing.T) {
	p, stdout, _ := newTestPrinter()
	p.Change("+", "%s (%s)", "a@x.com", "internal_user")
	p.Change("~", "b@x.com")
	assert.Equal(t, "  + a@x.com (internal_user)\n  ~ b@x.com\n", stdout.String())
}

func TestPrinter_BoldDimWithoutColors(t *testing.T) {
	p, _, _ := newTestPrinter()
	assert.Equal(t, "text", p.Bold("text"))
	assert.Equal(t, "text", p.Dim("text"))
}
