// Package container classifies the container manager, if any, the calling
// process runs under.
package container

// Container is the container manager detected for the process.
type Container uint8

// None is the zero value: no container. Other means a container was found
// but its manager is unknown.
const (
	None Container = iota
	Other
	SystemdNspawn
	LXCLibvirt
	LXC
	OpenVZ
	Docker
	Podman
	Rkt
	WSL
	PRoot
	Pouch
)

var names = [...]struct {
	display, token string
}{
	None:          {"none", "none"},
	Other:         {"other", "other"},
	SystemdNspawn: {"systemd_nspawn", "systemd-nspawn"},
	LXCLibvirt:    {"lxc_libvirt", "lxc-libvirt"},
	LXC:           {"lxc", "lxc"},
	OpenVZ:        {"OpenVZ", "openvz"},
	Docker:        {"Docker", "docker"},
	Podman:        {"Podman", "podman"},
	Rkt:           {"rkt", "rkt"},
	WSL:           {"WSL", "wsl"},
	PRoot:         {"PRoot", "proot"},
	Pouch:         {"pouch", "pouch"},
}

var tokens = map[string]Container{
	"systemd-nspawn": SystemdNspawn,
	"lxc-libvirt":    LXCLibvirt,
	"lxc":            LXC,
	"openvz":         OpenVZ,
	"docker":         Docker,
	"podman":         Podman,
	"rkt":            Rkt,
	"wsl":            WSL,
	"proot":          PRoot,
	"pouch":          Pouch,
}

// List returns every specific container manager, without None and Other.
func List() []Container {
	return []Container{
		SystemdNspawn, LXCLibvirt, LXC, OpenVZ, Docker, Podman, Rkt, WSL, PRoot, Pouch,
	}
}

// Parse maps the value systemd or a container manager writes into the
// "container" variable, like "docker" or "systemd-nspawn", to its Container.
// Matching is exact; anything unknown is Other.
func Parse(s string) Container {
	if c, ok := tokens[s]; ok {
		return c
	}
	return Other
}

// IsContainerized reports whether c is anything but None.
func (c Container) IsContainerized() bool {
	return c != None
}

// String returns the display name of c.
func (c Container) String() string {
	if int(c) >= len(names) {
		return names[Other].display
	}
	return names[c].display
}

// Token returns the identifier Parse accepts for c.
func (c Container) Token() string {
	if int(c) >= len(names) {
		return names[Other].token
	}
	return names[c].token
}
