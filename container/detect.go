package container

import (
	"strings"

	"github.com/RasterSec/detectvirt/probe"
)

const (
	procVZ          = "/proc/vz"
	procBC          = "/proc/bc"
	osRelease       = "/proc/sys/kernel/osrelease"
	managerFile     = "/run/systemd/container-manager"
	systemdFile     = "/run/systemd/container"
	containerEnvVar = "container"
)

// Checked in order when the manager is "oci".
var ociMarkers = []struct {
	path string
	c    Container
}{
	{"/run/.containerenv", Podman},
	{"/.dockerenv", Docker},
}

// Detect returns the container manager the calling process runs under, or
// None. Unreadable evidence is treated as missing.
func Detect() Container {
	return DetectWith(probe.Host())
}

// DetectWith runs the same checks as Detect against the evidence in p.
func DetectWith(p *probe.Probe) Container {
	if isOpenVZ(p) {
		return OpenVZ
	}
	if isWSL(p) {
		return WSL
	}
	if isPRoot(p) {
		return PRoot
	}
	if c, ok := fromManager(p); ok {
		return c
	}
	if c, ok := fromSystemd(p); ok {
		return c
	}
	if c, ok := fromInitEnv(p); ok {
		return c
	}
	return None
}

func isOpenVZ(p *probe.Probe) bool {
	// /proc/bc only exists on the OpenVZ host node.
	if p.Exists(procVZ) && !p.Exists(procBC) {
		p.Log.Debug("[Container][OpenVZ] /proc/vz exists without /proc/bc")
		return true
	}
	return false
}

func isWSL(p *probe.Probe) bool {
	s, ok, err := p.FirstLine(osRelease)
	if err != nil {
		p.Log.WithError(err).Debug("[Container][WSL] cannot read kernel release")
		return false
	}
	if ok && (strings.Contains(s, "Microsoft") || strings.Contains(s, "WSL")) {
		p.Log.Debugf("[Container][WSL] kernel release %q", s)
		return true
	}
	return false
}

func isPRoot(p *probe.Probe) bool {
	if p.Procs == nil {
		return false
	}
	t, err := p.Procs.TracerPID()
	if err != nil {
		p.Log.WithError(err).Debug("[Container][PRoot] cannot read tracer pid")
		return false
	}
	if t == 0 {
		return false
	}
	c, err := p.Procs.Comm(t)
	if err != nil {
		p.Log.WithError(err).Debug("[Container][PRoot] cannot read tracer command")
		return false
	}
	if strings.HasPrefix(c, "proot") {
		p.Log.Debugf("[Container][PRoot] traced by %q (pid %d)", c, t)
		return true
	}
	return false
}

func fromManager(p *probe.Probe) (Container, bool) {
	s, ok, err := p.FirstLine(managerFile)
	if err != nil {
		p.Log.WithError(err).Debug("[Container][Manager] cannot read container manager")
		return None, false
	}
	if !ok {
		return None, false
	}
	p.Log.Debugf("[Container][Manager] container manager is %q", s)
	if s != "oci" {
		return Parse(s), true
	}
	for _, m := range ociMarkers {
		if p.Exists(m.path) {
			p.Log.Debugf("[Container][Manager] %s exists", m.path)
			return m.c, true
		}
	}
	return Other, true
}

func fromSystemd(p *probe.Probe) (Container, bool) {
	s, ok, err := p.FirstLine(systemdFile)
	if err != nil {
		p.Log.WithError(err).Debug("[Container][systemd] cannot read /run/systemd/container")
		return None, false
	}
	if !ok {
		return None, false
	}
	p.Log.Debugf("[Container][systemd] /run/systemd/container contains %q", s)
	return Parse(s), true
}

func fromInitEnv(p *probe.Probe) (Container, bool) {
	if p.Procs == nil {
		return None, false
	}
	var (
		v  string
		ok bool
	)
	if p.Procs.PID() == 1 {
		v, ok = p.Procs.Getenv(containerEnvVar)
	} else {
		e, err := p.Procs.Environ(1)
		if err != nil {
			p.Log.WithError(err).Debug("[Container][Env] cannot read init environment")
			return None, false
		}
		v, ok = probe.LookupEnv(e, containerEnvVar)
	}
	if !ok {
		return None, false
	}
	p.Log.Debugf("[Container][Env] init has container=%q", v)
	return Parse(v), true
}
