package container

import (
	"os"
	"testing"

	"github.com/RasterSec/detectvirt/probe"
	"github.com/RasterSec/detectvirt/testutils"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

type denyFs struct {
	afero.Fs
}

func (denyFs) Open(name string) (afero.File, error) {
	return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
}

func procs(t *testing.T, p probe.Procs) *testutils.Procs {
	t.Helper()
	r, ok := p.(*testutils.Procs)
	if !ok {
		t.Fatalf("unexpected procs %T", p)
	}
	return r
}

func TestDetectNone(t *testing.T) {
	assert.Equal(t, None, DetectWith(testutils.NewProbe("amd64")))
}

func TestDetectOpenVZ(t *testing.T) {
	p := testutils.NewProbe("amd64")
	testutils.Mkdir(t, p, procVZ)
	assert.Equal(t, OpenVZ, DetectWith(p))

	testutils.Mkdir(t, p, procBC)
	assert.Equal(t, None, DetectWith(p))
}

func TestDetectWSL(t *testing.T) {
	for _, s := range []string{"4.4.0-19041-Microsoft\n", "5.15.90.1-microsoft-standard-WSL2\n"} {
		p := testutils.NewProbe("amd64")
		testutils.WriteFile(t, p, osRelease, s)
		assert.Equal(t, WSL, DetectWith(p), s)
	}
	p := testutils.NewProbe("amd64")
	testutils.WriteFile(t, p, osRelease, "6.1.0-18-amd64\n")
	assert.Equal(t, None, DetectWith(p))
}

func TestDetectPRoot(t *testing.T) {
	p := testutils.NewProbe("arm64")
	procs(t, p.Procs).Tracer = 812
	procs(t, p.Procs).Comms = map[int]string{812: "proot"}
	assert.Equal(t, PRoot, DetectWith(p))

	procs(t, p.Procs).Comms = map[int]string{812: "gdb"}
	assert.Equal(t, None, DetectWith(p))

	procs(t, p.Procs).Comms = nil
	assert.Equal(t, None, DetectWith(p))

	procs(t, p.Procs).Tracer = 0
	procs(t, p.Procs).Comms = map[int]string{0: "proot"}
	assert.Equal(t, None, DetectWith(p))
}

func TestDetectManagerOCI(t *testing.T) {
	p := testutils.NewProbe("amd64")
	testutils.WriteFile(t, p, managerFile, "oci")
	assert.Equal(t, Other, DetectWith(p))

	testutils.WriteFile(t, p, "/.dockerenv", "")
	assert.Equal(t, Docker, DetectWith(p))

	testutils.WriteFile(t, p, "/run/.containerenv", "")
	assert.Equal(t, Podman, DetectWith(p))
}

func TestDetectManager(t *testing.T) {
	p := testutils.NewProbe("amd64")
	testutils.WriteFile(t, p, managerFile, "systemd-nspawn\n")
	testutils.WriteFile(t, p, systemdFile, "docker\n")
	assert.Equal(t, SystemdNspawn, DetectWith(p))

	testutils.WriteFile(t, p, managerFile, "garden\n")
	assert.Equal(t, Other, DetectWith(p))
}

func TestDetectSystemdContainer(t *testing.T) {
	p := testutils.NewProbe("amd64")
	testutils.WriteFile(t, p, systemdFile, "lxc-libvirt\n")
	procs(t, p.Procs).Envs = map[int][]string{1: {"container=docker"}}
	assert.Equal(t, LXCLibvirt, DetectWith(p))
}

func TestDetectInitEnviron(t *testing.T) {
	p := testutils.NewProbe("amd64")
	procs(t, p.Procs).Envs = map[int][]string{1: {"PATH=/usr/bin", "container=podman", "TERM=xterm"}}
	assert.Equal(t, Podman, DetectWith(p))

	procs(t, p.Procs).Envs = map[int][]string{1: {"container="}}
	assert.Equal(t, Other, DetectWith(p))

	procs(t, p.Procs).Envs = map[int][]string{1: {"PATH=/usr/bin"}}
	assert.Equal(t, None, DetectWith(p))
}

func TestDetectOwnEnvironAsInit(t *testing.T) {
	p := testutils.NewProbe("amd64")
	pr := procs(t, p.Procs)
	pr.Self = 1
	pr.Own = map[string]string{"container": "rkt"}
	pr.Envs = map[int][]string{1: {"container=docker"}}
	assert.Equal(t, Rkt, DetectWith(p))

	pr.Own = nil
	assert.Equal(t, None, DetectWith(p))
}

func TestDetectOrder(t *testing.T) {
	p := testutils.NewProbe("amd64")
	testutils.Mkdir(t, p, procVZ)
	testutils.WriteFile(t, p, osRelease, "5.15.90.1-microsoft-standard-WSL2\n")
	testutils.WriteFile(t, p, managerFile, "docker\n")
	assert.Equal(t, OpenVZ, DetectWith(p))
}

func TestDetectSwallowsReadErrors(t *testing.T) {
	p := testutils.NewProbe("amd64")
	testutils.WriteFile(t, p, osRelease, "5.15.90.1-microsoft-standard-WSL2\n")
	testutils.WriteFile(t, p, managerFile, "docker\n")
	testutils.WriteFile(t, p, systemdFile, "lxc\n")
	p.Fs = denyFs{Fs: p.Fs}
	assert.Equal(t, None, DetectWith(p))
}

type tracerErrProcs struct {
	testutils.Procs
}

func (tracerErrProcs) TracerPID() (int, error) {
	return 0, os.ErrPermission
}

func TestDetectPRootUnreadableStatus(t *testing.T) {
	p := testutils.NewProbe("amd64")
	p.Procs = &tracerErrProcs{Procs: testutils.Procs{Self: 4242, Comms: map[int]string{0: "proot"}}}
	testutils.WriteFile(t, p, systemdFile, "lxc\n")
	assert.Equal(t, LXC, DetectWith(p))
}
