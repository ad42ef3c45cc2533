package testutils

import (
	"io"
	"testing"

	"github.com/RasterSec/detectvirt/probe"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// Procs is a fixed in-memory probe.Procs.
type Procs struct {
	Self   int
	Tracer int
	Comms  map[int]string
	Envs   map[int][]string
	Own    map[string]string
}

// PID implements probe.Procs.
func (p *Procs) PID() int {
	return p.Self
}

// TracerPID implements probe.Procs.
func (p *Procs) TracerPID() (int, error) {
	return p.Tracer, nil
}

// Comm implements probe.Procs.
func (p *Procs) Comm(pid int) (string, error) {
	c, ok := p.Comms[pid]
	if !ok {
		return "", errors.Errorf("no such process %d", pid)
	}
	return c, nil
}

// Environ implements probe.Procs.
func (p *Procs) Environ(pid int) ([]string, error) {
	e, ok := p.Envs[pid]
	if !ok {
		return nil, errors.Errorf("no such process %d", pid)
	}
	return e, nil
}

// Getenv implements probe.Procs.
func (p *Procs) Getenv(key string) (string, bool) {
	v, ok := p.Own[key]
	return v, ok
}

// CPU is a fixed probe.CPU.
type CPU struct {
	Vendor  string
	Present bool
}

// Hypervisor implements probe.CPU.
func (c CPU) Hypervisor() (string, bool) {
	return c.Vendor, c.Present
}

// NewProbe returns a Probe for arch backed by an empty in-memory filesystem,
// a non-init process with no environment and a CPU without a hypervisor.
func NewProbe(arch string) *probe.Probe {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &probe.Probe{
		Fs:    afero.NewMemMapFs(),
		Procs: &Procs{Self: 4242},
		CPU:   CPU{},
		Arch:  arch,
		Log:   l,
	}
}

// WriteFile creates path with content in the probe's filesystem.
func WriteFile(t *testing.T, p *probe.Probe, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(p.Fs, path, []byte(content), 0o644))
}

// Mkdir creates the directory path in the probe's filesystem.
func Mkdir(t *testing.T, p *probe.Probe, path string) {
	t.Helper()
	require.NoError(t, p.Fs.MkdirAll(path, 0o755))
}
