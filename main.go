package main

import (
	"os"

	"github.com/RasterSec/detectvirt/probe"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	logrus.SetOutput(os.Stderr)
	var config detectConfig
	err := newRootCommand(&config).Execute()
	switch {
	case err == nil:
	case errors.Is(err, errNotDetected):
		os.Exit(1)
	default:
		logrus.Error(err)
		os.Exit(2)
	}
}

func run(cmd *cobra.Command, config *detectConfig) error {
	if config.List {
		writeList(cmd.OutOrStdout(), config.Mode)
		return nil
	}
	if os.Geteuid() != 0 {
		logrus.Debug("Not running as root, the SMBIOS VM bit may be unreadable")
	}
	detection, err := DetectVirt(probe.Rooted(config.Root), config.Mode)
	if err != nil {
		return err
	}
	if !config.Quiet {
		if err := writeDetection(cmd.OutOrStdout(), detection, config.OutputFormat); err != nil {
			return err
		}
	}
	if !detection.Detected() {
		return errNotDetected
	}
	return nil
}
