/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/allbin/go-serialport"
	"github.com/allbin/go-serialport/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List all available serial ports on the system.

This command scans /dev for serial devices including:
- USB serial adapters (ttyUSB*)
- USB CDC/ACM devices (ttyACM*)
- Standard serial ports (ttyS*)
- ARM/Raspberry Pi ports (ttyAMA*)
- And other platform-specific serial devices

Virtual terminals and pseudo-terminals are excluded from the listing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := serialport.ListPorts()
		if err != nil {
			return fmt.Errorf("listing ports: %w", err)
		}

		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")

		infos, err := filterPorts(ports, filterType)
		if err != nil {
			return err
		}
		logger.Debug().Int("found", len(ports)).Int("shown", len(infos)).Str("filter", filterType).Msg("ports scanned")

		if len(infos) == 0 {
			if filterType != "" {
				fmt.Printf("No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Println("No serial ports found")
			}
			return nil
		}

		if tableFormat {
			fmt.Printf("Found %d serial port(s):\n\n", len(infos))
			fmt.Println(renderTable(infos))
			return nil
		}
		for _, info := range infos {
			fmt.Println(info.Path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "Filter by port type: usb, standard, arm, other, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

// filterPorts resolves each port and keeps those of the requested kind
func filterPorts(ports []string, filterType string) ([]*serialport.PortInfo, error) {
	filter := strings.ToLower(filterType)
	switch serialport.PortKind(filter) {
	case "", "all", serialport.KindUSB, serialport.KindStandard, serialport.KindARM, serialport.KindOther:
	default:
		return nil, fmt.Errorf("unknown filter %q", filterType)
	}

	var infos []*serialport.PortInfo
	for _, port := range ports {
		info, err := serialport.GetPortInfo(port)
		if err != nil {
			logger.Debug().Err(err).Str("port", port).Msg("skipping port")
			continue
		}
		if filter == "" || filter == "all" || serialport.PortKind(filter) == info.Kind {
			infos = append(infos, info)
		}
	}
	return infos, nil
}

const (
	columnKeyPort        = "port"
	columnKeyKind        = "kind"
	columnKeyType        = "type"
	columnKeyDescription = "description"
)

// renderTable renders the port list as a static bordered table
func renderTable(infos []*serialport.PortInfo) string {
	columns := []table.Column{
		table.NewColumn(columnKeyPort, "Port", 15),
		table.NewColumn(columnKeyKind, "Kind", 10),
		table.NewColumn(columnKeyType, "Type", 20),
		table.NewColumn(columnKeyDescription, "Description", 30),
	}

	rows := make([]table.Row, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, table.NewRow(table.RowData{
			columnKeyPort:        info.Path,
			columnKeyKind:        string(info.Kind),
			columnKeyType:        info.Type,
			columnKeyDescription: info.Description,
		}))
	}

	return table.New(columns).
		WithRows(rows).
		HeaderStyle(lipgloss.NewStyle().Bold(true).Foreground(colors.Mauve)).
		BorderRounded().
		View()
}
