// Package virt classifies the hypervisor, if any, the host is running under.
package virt

// Virtualization is the hypervisor detected for the host.
type Virtualization uint8

// None is the zero value: the host is not virtualized. Other means a
// hypervisor is present but could not be identified.
const (
	None Virtualization = iota
	Other
	KVM
	Amazon
	QEMU
	Bochs
	Xen
	UML
	VMware
	Oracle
	Microsoft
	ZVM
	Parallels
	Bhyve
	QNX
	ACRN
	PowerVM
)

var names = [...]struct {
	display, token string
}{
	None:      {"none", "none"},
	Other:     {"other", "other"},
	KVM:       {"KVM", "kvm"},
	Amazon:    {"Amazon", "amazon"},
	QEMU:      {"QEMU", "qemu"},
	Bochs:     {"Bochs", "bochs"},
	Xen:       {"Xen", "xen"},
	UML:       {"UML", "uml"},
	VMware:    {"VMware", "vmware"},
	Oracle:    {"Oracle", "oracle"},
	Microsoft: {"MicroSoft", "microsoft"},
	ZVM:       {"ZVM", "zvm"},
	Parallels: {"Parallels", "parallels"},
	Bhyve:     {"Bhyve", "bhyve"},
	QNX:       {"QNX", "qnx"},
	ACRN:      {"ACRN", "acrn"},
	PowerVM:   {"PowerVM", "powervm"},
}

var tokens = map[string]Virtualization{
	"kvm":       KVM,
	"amazon":    Amazon,
	"qemu":      QEMU,
	"bochs":     Bochs,
	"xen":       Xen,
	"uml":       UML,
	"vmware":    VMware,
	"oracle":    Oracle,
	"microsoft": Microsoft,
	"zvm":       ZVM,
	"parallels": Parallels,
	"bhyve":     Bhyve,
	"qnx":       QNX,
	"acrn":      ACRN,
	"powervm":   PowerVM,
}

// List returns every specific hypervisor, without None and Other.
func List() []Virtualization {
	return []Virtualization{
		KVM, Amazon, QEMU, Bochs, Xen, UML, VMware, Oracle, Microsoft, ZVM, Parallels, Bhyve,
		QNX, ACRN, PowerVM,
	}
}

// Parse maps a kernel or systemd identifier such as "kvm" or "microsoft" to
// its Virtualization. Matching is exact; anything unknown is Other.
func Parse(s string) Virtualization {
	if v, ok := tokens[s]; ok {
		return v
	}
	return Other
}

// IsVirtualized reports whether v is anything but None.
func (v Virtualization) IsVirtualized() bool {
	return v != None
}

// String returns the display name of v.
func (v Virtualization) String() string {
	if int(v) >= len(names) {
		return names[Other].display
	}
	return names[v].display
}

// Token returns the lowercase identifier Parse accepts for v.
func (v Virtualization) Token() string {
	if int(v) >= len(names) {
		return names[Other].token
	}
	return names[v].token
}
