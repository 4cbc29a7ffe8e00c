/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"

	"github.com/allbin/go-serialport"
	"github.com/allbin/go-serialport/internal/tui/styles"
	"github.com/spf13/cobra"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Display detailed information about a serial port",
	Long: `Display information about a serial port and the line parameters it
reports after being opened with the configured settings.

Examples:
  serialport info /dev/ttyUSB0
  serialport info /dev/ttyS0 --baud 115200 --stop-bits 2

With --no-open only the device classification is shown and the device is
left untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		portPath := args[0]

		info, err := serialport.GetPortInfo(portPath)
		if err != nil {
			return fmt.Errorf("getting port info: %w", err)
		}

		fmt.Printf("%s %s\n\n", styles.InfoStyle.Render("Port Information:"), info.Path)
		printField("Name", info.Name)
		printField("Kind", string(info.Kind))
		printField("Type", info.Type)
		printField("Description", info.Description)

		noOpen, _ := cmd.Flags().GetBool("no-open")
		if noOpen {
			return nil
		}

		port, err := openPort(portPath)
		if err != nil {
			return err
		}
		defer port.Close()

		fmt.Printf("\n%s\n\n", styles.InfoStyle.Render("Line Parameters:"))
		return printLine(port)
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().Bool("no-open", false, "Do not open the device")
}

func printField(label, value string) {
	fmt.Printf("  %s %s\n", styles.LabelStyle.Render(label+":"), value)
}

// printLine reads every parameter back through its own accessor
func printLine(port *serialport.Port) error {
	baud, err := port.BaudRate()
	if err != nil {
		return err
	}
	size, err := port.CharSize()
	if err != nil {
		return err
	}
	parity, err := port.Parity()
	if err != nil {
		return err
	}
	stopBits, err := port.StopBits()
	if err != nil {
		return err
	}
	flow, err := port.FlowControl()
	if err != nil {
		return err
	}
	pending, err := port.IsDataAvailable()
	if err != nil {
		return err
	}

	printField("Baud rate", baud.String())
	printField("Data bits", size.String())
	printField("Parity", parity.String())
	printField("Stop bits", stopBits.String())
	printField("Flow control", flow.String())
	printField("Data waiting", fmt.Sprintf("%t", pending))
	return nil
}
