package probe

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/procfs"
)

// DefaultProcMount is where the kernel's per-process interface is mounted.
const DefaultProcMount = procfs.DefaultMountPoint

// Procs exposes the per-process introspection the container checks need.
type Procs interface {
	// PID returns the process id of the caller.
	PID() int
	// TracerPID returns the pid tracing the caller, or 0.
	TracerPID() (int, error)
	// Comm returns the command name of pid.
	Comm(pid int) (string, error)
	// Environ returns the environment block of pid as KEY=VALUE entries.
	Environ(pid int) ([]string, error)
	// Getenv looks up a variable in the caller's own environment.
	Getenv(key string) (string, bool)
}

type hostProcs struct {
	mount string
}

// NewProcs returns a Procs reading from the proc filesystem mounted at mount.
func NewProcs(mount string) Procs {
	return hostProcs{mount: mount}
}

func (hostProcs) PID() int {
	return os.Getpid()
}
func (h hostProcs) TracerPID() (int, error) {
	// procfs.ProcStatus does not carry TracerPid.
	p := filepath.Join(h.mount, "self", "status")
	f, err := os.Open(p)
	if err != nil {
		return 0, errors.Wrapf(err, "open %s", p)
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	for s.Scan() {
		v, ok := strings.CutPrefix(s.Text(), "TracerPid:")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, errors.Wrapf(err, "parse TracerPid in %s", p)
		}
		return n, nil
	}
	if err := s.Err(); err != nil {
		return 0, errors.Wrapf(err, "read %s", p)
	}
	return 0, nil
}
func (h hostProcs) Comm(pid int) (string, error) {
	p, err := h.proc(pid)
	if err != nil {
		return "", err
	}
	c, err := p.Comm()
	if err != nil {
		return "", errors.Wrapf(err, "comm of pid %d", pid)
	}
	return c, nil
}
func (h hostProcs) Environ(pid int) ([]string, error) {
	p, err := h.proc(pid)
	if err != nil {
		return nil, err
	}
	e, err := p.Environ()
	if err != nil {
		return nil, errors.Wrapf(err, "environ of pid %d", pid)
	}
	return e, nil
}
func (hostProcs) Getenv(key string) (string, bool) {
	return os.LookupEnv(key)
}
func (h hostProcs) proc(pid int) (procfs.Proc, error) {
	fs, err := procfs.NewFS(h.mount)
	if err != nil {
		return procfs.Proc{}, errors.Wrapf(err, "open procfs at %s", h.mount)
	}
	p, err := fs.Proc(pid)
	if err != nil {
		return procfs.Proc{}, errors.Wrapf(err, "pid %d", pid)
	}
	return p, nil
}

// LookupEnv finds key in an environment block of KEY=VALUE entries.
func LookupEnv(environ []string, key string) (string, bool) {
	for _, e := range environ {
		k, v, ok := strings.Cut(e, "=")
		if ok && k == key {
			return v, true
		}
	}
	return "", false
}
