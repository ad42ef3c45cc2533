package probe

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memProbe(t *testing.T, files map[string]string) *Probe {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	p := &Probe{Fs: afero.NewMemMapFs(), Arch: "amd64", Log: l}
	for k, v := range files {
		require.NoError(t, afero.WriteFile(p.Fs, k, []byte(v), 0o644))
	}
	return p
}

func TestFirstLine(t *testing.T) {
	p := memProbe(t, map[string]string{
		"/a": "xen\nsecond\n",
		"/b": "oci",
		"/c": "",
		"/d": "crlf\r\n",
	})
	for path, want := range map[string]string{"/a": "xen", "/b": "oci", "/c": "", "/d": "crlf"} {
		s, ok, err := p.FirstLine(path)
		require.NoError(t, err)
		assert.True(t, ok, path)
		assert.Equal(t, want, s, path)
	}
	s, ok, err := p.FirstLine("/missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, s)
}

func TestReadFileAndLines(t *testing.T) {
	p := memProbe(t, map[string]string{"/proc/cpuinfo": "processor\t: 0\nvendor_id\t: GenuineIntel\n"})
	b, ok, err := p.ReadFile("/proc/cpuinfo")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, b, 39)

	l, ok, err := p.Lines("/proc/cpuinfo")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"processor\t: 0", "vendor_id\t: GenuineIntel"}, l)

	_, ok, err = p.ReadFile("/nope")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = p.Lines("/nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNamesAndExists(t *testing.T) {
	p := memProbe(t, map[string]string{
		"/proc/device-tree/fw-cfg@9030000/compatible": "qemu,fw-cfg-mmio",
		"/proc/device-tree/model":                     "linux,dummy-virt",
	})
	n, ok, err := p.Names("/proc/device-tree")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.ElementsMatch(t, []string{"fw-cfg@9030000", "model"}, n)

	_, ok, err = p.Names("/sys/nothing")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, p.Exists("/proc/device-tree"))
	assert.False(t, p.Exists("/proc/vz"))
}

func TestIsArch(t *testing.T) {
	p := &Probe{Arch: "arm64"}
	assert.True(t, p.IsArch("arm", "arm64"))
	assert.False(t, p.IsArch("386", "amd64"))
	assert.False(t, p.IsArch())
}

func TestLookupEnv(t *testing.T) {
	e := []string{"PATH=/usr/bin", "container=lxc", "EMPTY=", "BROKEN", "A=b=c"}
	v, ok := LookupEnv(e, "container")
	assert.True(t, ok)
	assert.Equal(t, "lxc", v)
	v, ok = LookupEnv(e, "EMPTY")
	assert.True(t, ok)
	assert.Empty(t, v)
	v, ok = LookupEnv(e, "A")
	assert.True(t, ok)
	assert.Equal(t, "b=c", v)
	_, ok = LookupEnv(e, "BROKEN")
	assert.False(t, ok)
}

func TestHostProcs(t *testing.T) {
	d := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(d, "1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(d, "1", "comm"), []byte("proot\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(d, "1", "environ"), []byte("HOME=/root\x00container=lxc\x00"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(d, "self"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(d, "self", "status"), []byte("Name:\tbash\nState:\tS (sleeping)\nTracerPid:\t812\nUid:\t0\t0\t0\t0\n"), 0o644))

	p := NewProcs(d)
	tr, err := p.TracerPID()
	require.NoError(t, err)
	assert.Equal(t, 812, tr)

	c, err := p.Comm(1)
	require.NoError(t, err)
	assert.Equal(t, "proot", c)

	e, err := p.Environ(1)
	require.NoError(t, err)
	v, ok := LookupEnv(e, "container")
	assert.True(t, ok)
	assert.Equal(t, "lxc", v)

	_, err = p.Comm(77)
	assert.Error(t, err)
	_, err = NewProcs(filepath.Join(d, "missing")).Environ(1)
	assert.Error(t, err)
	_, err = NewProcs(filepath.Join(d, "missing")).TracerPID()
	assert.Error(t, err)
	assert.Equal(t, os.Getpid(), p.PID())
}

func TestRooted(t *testing.T) {
	d := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(d, "sys", "hypervisor"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(d, "sys", "hypervisor", "type"), []byte("xen\n"), 0o644))

	p := Rooted(d)
	s, ok, err := p.FirstLine("/sys/hypervisor/type")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "xen", s)
	assert.False(t, p.Exists("/proc/xen"))
	assert.Equal(t, NewProcs(DefaultProcMount), p.Procs)

	assert.IsType(t, &afero.OsFs{}, Rooted("/").Fs)
}
