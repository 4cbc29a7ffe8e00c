package serialport

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

// PortKind classifies a serial device by its driver family
type PortKind string

const (
	KindUSB      PortKind = "usb"
	KindStandard PortKind = "standard"
	KindARM      PortKind = "arm"
	KindOther    PortKind = "other"
)

// PortInfo describes a serial device node
type PortInfo struct {
	Name        string
	Path        string
	Kind        PortKind
	Type        string
	Description string
}

// portFamily maps a device name pattern to its classification
type portFamily struct {
	pattern     *regexp.Regexp
	kind        PortKind
	typ         string
	description string
}

var portFamilies = []portFamily{
	{regexp.MustCompile(`^ttyUSB\d+$`), KindUSB, "USB Serial", "USB Serial Port"},
	{regexp.MustCompile(`^ttyACM\d+$`), KindUSB, "USB CDC/ACM", "USB CDC/ACM Device"},
	{regexp.MustCompile(`^ttyAMA\d+$`), KindARM, "ARM Serial", "ARM Serial Port"},
	{regexp.MustCompile(`^ttymxc\d+$`), KindOther, "i.MX Serial", "i.MX Serial Port"},
	{regexp.MustCompile(`^ttySAC\d+$`), KindOther, "Samsung Serial", "Samsung Serial Port"},
	{regexp.MustCompile(`^ttyTHS\d+$`), KindOther, "Tegra Serial", "Tegra Serial Port"},
	{regexp.MustCompile(`^ttyO\d+$`), KindOther, "OMAP Serial", "OMAP Serial Port"},
	{regexp.MustCompile(`^ttyS\d+$`), KindStandard, "Standard Serial", "Standard Serial Port"},
}

// devDir is a variable so tests can point discovery at a scratch directory
var devDir = "/dev"

// ListPorts returns the serial device nodes under /dev, sorted by path.
// Virtual terminals and pseudo-terminals never match a serial family.
func ListPorts() ([]string, error) {
	entries, err := os.ReadDir(devDir)
	if err != nil {
		return nil, err
	}

	var ports []string
	for _, entry := range entries {
		if _, ok := lookupFamily(entry.Name()); !ok {
			continue
		}
		path := filepath.Join(devDir, entry.Name())
		if isCharacterDevice(path) {
			ports = append(ports, path)
		}
	}

	sort.Strings(ports)
	return ports, nil
}

// GetPortInfo returns detailed information about a specific port
func GetPortInfo(portPath string) (*PortInfo, error) {
	if !isCharacterDevice(portPath) {
		return nil, ErrDeviceNotFound
	}

	name := filepath.Base(portPath)
	info := &PortInfo{
		Name:        name,
		Path:        portPath,
		Kind:        KindOther,
		Type:        "Serial Port",
		Description: "Serial Port",
	}
	if family, ok := lookupFamily(name); ok {
		info.Kind = family.kind
		info.Type = family.typ
		info.Description = family.description
	}
	return info, nil
}

func lookupFamily(name string) (portFamily, bool) {
	for _, family := range portFamilies {
		if family.pattern.MatchString(name) {
			return family, true
		}
	}
	return portFamily{}, false
}

// isCharacterDevice checks if the given path is a character device
func isCharacterDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
