package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/RasterSec/detectvirt/container"
	"github.com/RasterSec/detectvirt/virt"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

func writeDetection(w io.Writer, d Detection, format string) error {
	switch format {
	case "json":
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		return errors.Wrap(e.Encode(d), "encode json")
	case "yaml":
		b, err := yaml.Marshal(d)
		if err != nil {
			return errors.Wrap(err, "encode yaml")
		}
		_, err = w.Write(b)
		return err
	}
	_, err := fmt.Fprintln(w, d.Name())
	return err
}

func writeList(w io.Writer, mode string) {
	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{"Kind", "Name", "Identifier"})
	if mode != modeContainer {
		for _, v := range virt.List() {
			t.Append([]string{"vm", v.String(), v.Token()})
		}
	}
	if mode != modeVM {
		for _, c := range container.List() {
			t.Append([]string{"container", c.String(), c.Token()})
		}
	}
	t.Render()
}
