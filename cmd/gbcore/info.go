package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli"

	"github.com/valerio/gbcore/gbcore/memory"
	"github.com/valerio/gbcore/gbcore/state"
)

var infoCommand = cli.Command{
	Name:      "info",
	Usage:     "Print the cartridge header of each ROM",
	ArgsUsage: "<ROM file>...",
	Flags: []cli.Flag{
		cli.StringSliceFlag{
			Name:  "state",
			Usage: "Also describe a BESS save state file (repeatable)",
		},
	},
	Action: runInfo,
}

func runInfo(c *cli.Context) error {
	states := c.StringSlice("state")
	if c.NArg() == 0 && len(states) == 0 {
		cli.ShowCommandHelp(c, "info")
		return errors.New("no ROM path provided")
	}

	for i, path := range c.Args() {
		if i > 0 {
			fmt.Println()
		}
		if err := printInfo(os.Stdout, path); err != nil {
			return err
		}
	}
	for i, path := range states {
		if i > 0 || c.NArg() > 0 {
			fmt.Println()
		}
		if err := printState(os.Stdout, path); err != nil {
			return err
		}
	}
	return nil
}

func printState(w io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	s, err := state.Decode(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Fprintf(w, "File       %s\n", path)
	fmt.Fprint(w, s)
	if len(s.Components) > 0 {
		fmt.Fprintf(w, "%-9s  %d component snapshots\n", "Exact", len(s.Components))
	}
	return nil
}

func printInfo(w io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	h, err := memory.ParseHeader(data)
	var mapperErr *memory.UnsupportedMapperError
	switch {
	case errors.As(err, &mapperErr):
		fmt.Fprintf(w, "%s: unsupported cartridge type 0x%02X\n", path, mapperErr.CartType)
		return nil
	case err != nil:
		return fmt.Errorf("%s: %w", path, err)
	}

	fmt.Fprintf(w, "File:      %s\n", path)
	fmt.Fprintf(w, "Title:     %s\n", h.Title)
	fmt.Fprintf(w, "Licensee:  %s\n", h.Licensee())
	fmt.Fprintf(w, "Type:      0x%02X %s\n", h.CartType, h.CartTypeName())
	fmt.Fprintf(w, "Mapper:    %s\n", h.Kind)
	fmt.Fprintf(w, "ROM:       %d KiB (%d banks)\n", h.ROMSize/1024, h.ROMBanks)
	fmt.Fprintf(w, "RAM:       %s\n", sizeString(h.RAMSize))
	fmt.Fprintf(w, "Battery:   %t\n", h.HasBattery)
	fmt.Fprintf(w, "RTC:       %t\n", h.HasRTC)
	fmt.Fprintf(w, "CGB:       %s\n", cgbSupport(h))
	fmt.Fprintf(w, "SGB:       %t\n", h.SupportsSGB())
	fmt.Fprintf(w, "Checksum:  0x%02X (%s)\n", h.HeaderChecksum, okString(h.ChecksumOK))
	fmt.Fprintf(w, "Logo:      %s\n", okString(h.LogoOK))
	return nil
}

func cgbSupport(h *memory.Header) string {
	switch {
	case h.CGBOnly():
		return "required"
	case h.SupportsCGB():
		return "supported"
	}
	return "no"
}

func okString(ok bool) string {
	if ok {
		return "ok"
	}
	return "mismatch"
}

func sizeString(n int) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	return fmt.Sprintf("%d KiB", n/1024)
}
