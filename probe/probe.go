// Package probe reads the evidence the detection engines reason about: files
// under /sys and /proc, per-process information and the CPU hypervisor leaf.
//
// A missing file is never an error. Readers report it through their found
// return value so callers can tell "no evidence" from a failed read.
package probe

import (
	"bufio"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Probe bundles the evidence sources for a single host.
// All fields but Procs and CPU are required; without those two the process
// and CPUID checks report no evidence.
type Probe struct {
	Fs    afero.Fs
	Procs Procs
	CPU   CPU
	// Arch is a GOARCH value gating the architecture specific checks.
	Arch string
	Log  logrus.FieldLogger
}

// Host returns a Probe for the running system.
func Host() *Probe {
	return &Probe{
		Fs:    afero.NewOsFs(),
		Procs: NewProcs(DefaultProcMount),
		CPU:   HostCPU{},
		Arch:  runtime.GOARCH,
		Log:   logrus.StandardLogger(),
	}
}

// Rooted returns a Probe whose file evidence is taken from below root instead
// of /. Process evidence and CPU identification still describe the running
// process, so the tracer and its comm always come from the live /proc.
func Rooted(root string) *Probe {
	if root == "" || root == "/" {
		return Host()
	}
	p := Host()
	p.Fs = afero.NewBasePathFs(afero.NewOsFs(), root)
	return p
}

// Exists reports whether path exists. Stat failures other than "not found"
// are also reported as absent.
func (p *Probe) Exists(path string) bool {
	ok, err := afero.Exists(p.Fs, path)
	if err != nil {
		p.Log.WithError(err).WithField("path", path).Debug("stat failed")
		return false
	}
	return ok
}

// FirstLine returns the first line of path without its line terminator.
func (p *Probe) FirstLine(path string) (string, bool, error) {
	f, err := p.Fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	s, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", true, errors.Wrapf(err, "read %s", path)
	}
	return strings.TrimRight(s, "\r\n"), true, nil
}

// ReadFile returns the full contents of path.
func (p *Probe) ReadFile(path string) ([]byte, bool, error) {
	b, err := afero.ReadFile(p.Fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "read %s", path)
	}
	return b, true, nil
}

// Lines returns every line of path.
func (p *Probe) Lines(path string) ([]string, bool, error) {
	f, err := p.Fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	var (
		r []string
		s = bufio.NewScanner(f)
	)
	for s.Scan() {
		r = append(r, s.Text())
	}
	if err := s.Err(); err != nil {
		return nil, true, errors.Wrapf(err, "read %s", path)
	}
	return r, true, nil
}

// Names returns the entry names of the directory at path.
func (p *Probe) Names(path string) ([]string, bool, error) {
	e, err := afero.ReadDir(p.Fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "list %s", path)
	}
	n := make([]string, 0, len(e))
	for _, v := range e {
		n = append(n, v.Name())
	}
	return n, true, nil
}

// IsArch reports whether the probed host runs one of the given GOARCH values.
func (p *Probe) IsArch(arch ...string) bool {
	for _, a := range arch {
		if p.Arch == a {
			return true
		}
	}
	return false
}
