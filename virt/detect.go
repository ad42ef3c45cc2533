package virt

import (
	"io"
	"strconv"
	"strings"

	"github.com/RasterSec/detectvirt/probe"
	"github.com/pkg/errors"
)

const (
	smbiosTable    = "/sys/firmware/dmi/entries/0-0/raw"
	cpuInfo        = "/proc/cpuinfo"
	procXen        = "/proc/xen"
	xenCaps        = "/proc/xen/capabilities"
	xenFeatures    = "/sys/hypervisor/properties/features"
	hypervisorType = "/sys/hypervisor/type"
	deviceTree     = "/proc/device-tree"
	dtCompatible   = "/proc/device-tree/hypervisor/compatible"
	sysInfo        = "/proc/sysinfo"

	xenFeatDom0 = 11
)

var dmiVendors = []string{
	"/sys/class/dmi/id/product_name",
	"/sys/class/dmi/id/sys_vendor",
	"/sys/class/dmi/id/board_vendor",
	"/sys/class/dmi/id/bios_vendor",
}

// Order matters: the first matching prefix wins.
var dmiVendorTable = []struct {
	prefix string
	v      Virtualization
}{
	{"KVM", KVM},
	{"Amazon EC2", Amazon},
	{"QEMU", QEMU},
	{"VMware", VMware},
	{"VMW", VMware},
	{"innotek GmbH", Oracle},
	{"Oracle Corporation", Oracle},
	{"Xen", Xen},
	{"Bochs", Bochs},
	{"Parallels", Parallels},
	{"BHYVE", Bhyve},
}

// CPUID leaf 0x40000000 vendor signatures.
var cpuidVendors = map[string]Virtualization{
	"KVMKVMKVM":    KVM,
	"Linux KVM Hv": KVM,
	"TCGTCGTCGTCG": QEMU,
	"XenVMMXenVMM": Xen,
	"VMwareVMware": VMware,
	"Microsoft Hv": Microsoft,
	"bhyve bhyve ": Bhyve,
	"QNXQVMBSQG":   QNX,
	"ACRNACRNACRN": ACRN,
	" lrpepyh vr":  Parallels,
}

type smbiosBit uint8

const (
	bitUnknown smbiosBit = iota
	bitSet
	bitUnset
)

type xenRole uint8

const (
	roleUnknown xenRole = iota
	roleDom0
	roleDomU
)

// Detect returns the hypervisor the running host is virtualized by, or None.
// An error is returned only when evidence exists but cannot be read.
func Detect() (Virtualization, error) {
	return DetectWith(probe.Host())
}

// DetectWith runs the same checks as Detect against the evidence in p.
func DetectWith(p *probe.Probe) (Virtualization, error) {
	dmi, err := detectDMI(p)
	if err != nil {
		return None, err
	}
	switch dmi {
	case Oracle, Amazon:
		return dmi, nil
	case Xen:
		r, err := detectXenRole(p)
		if err != nil {
			return None, err
		}
		if r == roleDom0 {
			p.Log.Debug("[VM][Xen] running in the privileged domain (Dom0)")
			return None, nil
		}
	}
	if ok, err := detectUML(p); err != nil {
		return None, err
	} else if ok {
		return UML, nil
	}
	var other bool
	switch v := detectCPUID(p); v {
	case None:
	case Other:
		other = true
	default:
		return v, nil
	}
	switch dmi {
	case None:
	case Other:
		other = true
	default:
		return dmi, nil
	}
	if p.Exists(procXen) {
		p.Log.WithField("path", procXen).Debug("[VM][Xen] /proc/xen exists")
		return Xen, nil
	}
	v, err := detectHypervisorType(p)
	if err != nil {
		return None, err
	}
	switch v {
	case None:
	case Other:
		other = true
	default:
		return v, nil
	}
	if v, err = detectDeviceTree(p); err != nil {
		return None, err
	}
	switch v {
	case None:
	case Other:
		other = true
	default:
		return v, nil
	}
	if v, err = detectZVM(p); err != nil {
		return None, err
	}
	if v != None {
		return v, nil
	}
	if other {
		return Other, nil
	}
	return None, nil
}

func detectDMI(p *probe.Probe) (Virtualization, error) {
	if !p.IsArch("386", "amd64", "arm", "arm64") {
		return None, nil
	}
	v, err := detectDMIVendor(p)
	if err != nil {
		return None, err
	}
	b, err := detectSMBIOS(p)
	if err != nil {
		return None, err
	}
	switch {
	case v == Amazon && b == bitUnset:
		p.Log.Debug("[VM][DMI] Amazon vendor string on bare metal (SMBIOS VM bit unset)")
		return None, nil
	case v == None && b == bitSet:
		p.Log.Debug("[VM][DMI] SMBIOS VM bit set without a known vendor")
		return Other, nil
	}
	return v, nil
}

func detectDMIVendor(p *probe.Probe) (Virtualization, error) {
	for _, path := range dmiVendors {
		s, ok, err := p.FirstLine(path)
		if err != nil {
			return None, err
		}
		if !ok {
			continue
		}
		for _, e := range dmiVendorTable {
			if strings.HasPrefix(s, e.prefix) {
				p.Log.WithField("path", path).Debugf("[VM][DMI] vendor %q matches %s", s, e.v)
				return e.v, nil
			}
		}
	}
	return None, nil
}

func detectSMBIOS(p *probe.Probe) (smbiosBit, error) {
	f, err := p.Fs.Open(smbiosTable)
	if err != nil {
		// Usually root-only; unreadable is the same as unknown.
		return bitUnknown, nil
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return bitUnknown, errors.Wrapf(err, "read %s", smbiosTable)
	}
	if len(b) < 20 || b[1] < 20 {
		return bitUnknown, nil
	}
	if b[19]&(1<<4) != 0 {
		return bitSet, nil
	}
	return bitUnset, nil
}

func detectXenRole(p *probe.Probe) (xenRole, error) {
	b, ok, err := p.ReadFile(xenFeatures)
	if err != nil {
		return roleUnknown, err
	}
	if ok {
		if f, err := parseUint32(string(b)); err == nil && f&(1<<xenFeatDom0) != 0 {
			return roleDom0, nil
		}
	}
	s, ok, err := p.FirstLine(xenCaps)
	if err != nil || !ok {
		return roleUnknown, err
	}
	if c, _, _ := strings.Cut(s, ","); c == "control_d" {
		return roleDom0, nil
	}
	return roleDomU, nil
}

func detectUML(p *probe.Probe) (bool, error) {
	l, _, err := p.Lines(cpuInfo)
	if err != nil {
		return false, err
	}
	for _, v := range l {
		s, ok := strings.CutPrefix(v, "vendor_id\t: ")
		if ok && strings.HasPrefix(s, "User Mode Linux") {
			p.Log.Debug("[VM][UML] cpuinfo vendor_id is User Mode Linux")
			return true, nil
		}
	}
	return false, nil
}

func detectCPUID(p *probe.Probe) Virtualization {
	if !p.IsArch("386", "amd64") || p.CPU == nil {
		return None
	}
	s, ok := p.CPU.Hypervisor()
	if !ok {
		return None
	}
	if v, ok := cpuidVendors[s]; ok {
		p.Log.Debugf("[VM][CPUID] hypervisor signature %q is %s", s, v)
		return v
	}
	p.Log.Debugf("[VM][CPUID] unknown hypervisor signature %q", s)
	return Other
}

func detectHypervisorType(p *probe.Probe) (Virtualization, error) {
	s, ok, err := p.FirstLine(hypervisorType)
	if err != nil || !ok {
		return None, err
	}
	p.Log.WithField("path", hypervisorType).Debugf("[VM][Hypervisor] type is %q", s)
	if s == "xen" {
		return Xen, nil
	}
	return Other, nil
}

func detectDeviceTree(p *probe.Probe) (Virtualization, error) {
	if !p.IsArch("arm", "arm64", "ppc64", "ppc64le") {
		return None, nil
	}
	s, ok, err := p.FirstLine(dtCompatible)
	if err != nil {
		return None, err
	}
	if ok {
		p.Log.WithField("path", dtCompatible).Debugf("[VM][DeviceTree] hypervisor compatible %q", s)
		switch strings.TrimRight(s, "\x00") {
		case "linux,kvm":
			return KVM, nil
		case "xen":
			return Xen, nil
		case "vmware":
			return VMware, nil
		}
		return Other, nil
	}
	if p.Exists(deviceTree+"/ibm,partition-name") && p.Exists(deviceTree+"/hmc-managed?") && p.Exists(deviceTree+"/chosen/qemu,graphic-width") {
		p.Log.Debug("[VM][DeviceTree] HMC managed partition")
		return PowerVM, nil
	}
	n, _, err := p.Names(deviceTree)
	if err != nil {
		return None, err
	}
	for _, v := range n {
		if strings.Contains(v, "fw-cfg") || strings.Contains(v, "fw-ctf") {
			p.Log.Debugf("[VM][DeviceTree] QEMU firmware config node %q", v)
			return QEMU, nil
		}
	}
	return None, nil
}

func detectZVM(p *probe.Probe) (Virtualization, error) {
	if !p.IsArch("s390x") {
		return None, nil
	}
	l, ok, err := p.Lines(sysInfo)
	if err != nil || !ok {
		return None, err
	}
	for _, v := range l {
		if !strings.HasPrefix(v, "VM00 Control Program") {
			continue
		}
		_, s, _ := strings.Cut(v, ":")
		p.Log.Debugf("[VM][zVM] control program %q", strings.TrimSpace(s))
		if strings.Contains(s, "z/VM") {
			return ZVM, nil
		}
		return KVM, nil
	}
	// An s390 guest without a z/VM control program line runs under KVM.
	p.Log.Debug("[VM][zVM] no control program in /proc/sysinfo")
	return KVM, nil
}

// parseUint32 accepts decimal or a 0x, 0o or 0b prefixed value.
func parseUint32(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	b := 10
	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			b = 16
		case 'o', 'O':
			b = 8
		case 'b', 'B':
			b = 2
		}
		if b != 10 {
			s = s[2:]
		}
	}
	v, err := strconv.ParseUint(s, b, 32)
	return uint32(v), err
}
