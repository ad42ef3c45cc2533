package main

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type detectConfig struct {
	Mode string
	// Detection options
	VM        bool
	Container bool
	List      bool
	Root      string
	// Global options
	Quiet        bool
	Debug        bool
	OutputFormat string
}

const (
	modeAll       = "all"
	modeVM        = "vm"
	modeContainer = "container"
)

var errNotDetected = errors.New("no virtualization or container detected")

func newRootCommand(config *detectConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detectvirt",
		Short: "Detect whether the host is a virtual machine or a container",
		Long: "Detect whether the host is a virtual machine or a container and, if so,\n" +
			"which hypervisor or container manager is in use.\n\n" +
			"Exits 0 when something was detected and 1 when nothing was.",
		Example: "  detectvirt\n" +
			"  detectvirt --vm -o json\n" +
			"  detectvirt --container --quiet\n" +
			"  detectvirt --list",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return config.validate()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, config)
		},
	}
	f := cmd.Flags()
	f.BoolVarP(&config.VM, "vm", "v", false, "Only detect hardware virtualization")
	f.BoolVarP(&config.Container, "container", "c", false, "Only detect container virtualization")
	f.BoolVar(&config.List, "list", false, "List all known hypervisors and container managers")
	f.StringVar(&config.Root, "root", "/", "Read file evidence below this directory")
	f.BoolVarP(&config.Quiet, "quiet", "q", false, "Print nothing, only set the exit status")
	f.BoolVar(&config.Debug, "debug", false, "Log every evidence source consulted")
	f.StringVarP(&config.OutputFormat, "output", "o", "text", "Output format (text, json, yaml)")
	return cmd
}

func (c *detectConfig) validate() error {
	if c.VM && c.Container {
		return errors.New("--vm and --container are mutually exclusive")
	}
	switch c.OutputFormat {
	case "text", "json", "yaml":
	default:
		return errors.Errorf("unknown output format %q", c.OutputFormat)
	}
	switch {
	case c.VM:
		c.Mode = modeVM
	case c.Container:
		c.Mode = modeContainer
	default:
		c.Mode = modeAll
	}
	if c.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	return nil
}
