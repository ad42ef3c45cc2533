package main

import (
	"github.com/RasterSec/detectvirt/container"
	"github.com/RasterSec/detectvirt/probe"
	"github.com/RasterSec/detectvirt/virt"
)

type Detection struct {
	Container      bool   `json:"container_detected" yaml:"container_detected"`
	ContainerName  string `json:"container_name" yaml:"container_name"`
	VM             bool   `json:"vm_detected" yaml:"vm_detected"`
	HypervisorName string `json:"hypervisor_name" yaml:"hypervisor_name"`
}

// Detected reports whether either engine found something.
func (d Detection) Detected() bool {
	return d.Container || d.VM
}

// Name returns the identifier of whatever was found, or "none".
func (d Detection) Name() string {
	switch {
	case d.Container:
		return d.ContainerName
	case d.VM:
		return d.HypervisorName
	}
	return virt.None.Token()
}

func DetectVirt(p *probe.Probe, mode string) (Detection, error) {
	var env Detection
	if mode != modeVM {
		if c := container.DetectWith(p); c.IsContainerized() {
			env.Container = true
			env.ContainerName = c.Token()
			if mode == modeAll {
				p.Log.Debug("Container detected. Skipping hypervisor checks.")
				return env, nil
			}
		}
	}
	if mode != modeContainer {
		v, err := virt.DetectWith(p)
		if err != nil {
			return env, err
		}
		if v.IsVirtualized() {
			env.VM = true
			env.HypervisorName = v.Token()
		}
	}
	return env, nil
}
