package probe

import (
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// CPU reports what the processor identification instruction says about a
// hypervisor.
type CPU interface {
	// Hypervisor returns the 12-byte hypervisor vendor signature and whether
	// the hypervisor-present bit is set.
	Hypervisor() (string, bool)
}

// HostCPU reads the running processor through CPUID.
type HostCPU struct{}

// Hypervisor implements CPU.
func (HostCPU) Hypervisor() (string, bool) {
	if !cpuid.CPU.VM() {
		return "", false
	}
	return strings.TrimRight(cpuid.CPU.HypervisorVendorString, "\x00"), true
}
