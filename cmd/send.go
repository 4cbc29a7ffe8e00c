/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/allbin/go-serialport"
	"github.com/allbin/go-serialport/internal/tui/components"
	"github.com/allbin/go-serialport/internal/tui/styles"
	"github.com/spf13/cobra"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [data] <port>",
	Short: "Send data to a serial port",
	Long: `Send data to a serial port one byte at a time.

Data can be provided as:
- Command line argument: send "Hello World" /dev/ttyUSB0
- From stdin (pipe): echo "test data" | serialport send /dev/ttyUSB0
- Interactive mode: serialport send /dev/ttyUSB0 (prompts for input)

Example usage:
  serialport send "Hello World" /dev/ttyUSB0
  serialport send "AT+GMR" /dev/ttyUSB0 --newline
  serialport send "0x02 0x06 0x00" /dev/ttyUSB0 --hex --baud 115200
  echo "test" | serialport send /dev/ttyUSB0`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data, portPath string

		// Parse arguments: either "send data port" or "send port"
		if len(args) == 1 {
			portPath = args[0]
			input, err := readInput(cmd.InOrStdin())
			if err != nil {
				return err
			}
			data = input
		} else {
			data, portPath = args[0], args[1]
		}

		addNewline, _ := cmd.Flags().GetBool("newline")
		hexMode, _ := cmd.Flags().GetBool("hex")

		payload, err := buildPayload(data, hexMode, addNewline)
		if err != nil {
			return err
		}

		return sendData(portPath, payload)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolP("newline", "n", false, "Add newline character to the end of data")
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., '48656c6c6f' for 'Hello')")
}

// readInput takes piped stdin if there is any, otherwise prompts for a line
func readInput(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok {
		stat, err := f.Stat()
		if err == nil && stat.Mode()&os.ModeCharDevice != 0 {
			fmt.Print(styles.InfoStyle.Render("Enter data to send: "))
			scanner := bufio.NewScanner(f)
			if scanner.Scan() {
				return scanner.Text(), nil
			}
			return "", scanner.Err()
		}
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// buildPayload turns the user's data into the bytes to write
func buildPayload(data string, hexMode, addNewline bool) ([]byte, error) {
	if hexMode {
		payload, err := components.ParseHex(data)
		if err != nil {
			return nil, fmt.Errorf("invalid hex data: %w", err)
		}
		return payload, nil
	}
	if addNewline {
		data += "\n"
	}
	return []byte(data), nil
}

func sendData(portPath string, payload []byte) error {
	fmt.Printf("%s Opening %s...\n", styles.InfoStyle.Render("⚡"), portPath)

	port, err := openPort(portPath)
	if err != nil {
		return err
	}
	defer port.Close()

	line, err := port.LineConfig()
	if err != nil {
		return err
	}
	fmt.Printf("%s Connected at %s\n", styles.SuccessStyle.Render("✓"), line)

	fmt.Printf("%s Sending %d bytes...\n", styles.InfoStyle.Render("📤"), len(payload))
	n, err := writeBytes(port, payload)
	if err != nil {
		fmt.Printf("%s Sent %d of %d bytes\n", styles.ErrorStyle.Render("✗"), n, len(payload))
		return err
	}
	fmt.Printf("%s Successfully sent %d bytes\n", styles.SuccessStyle.Render("✓"), n)

	preview := payload
	if len(preview) > 50 {
		preview = preview[:50]
	}
	fmt.Printf("%s Data: %s\n", styles.InfoStyle.Render("📋"), components.Printable(preview))
	return nil
}

// writeBytes writes payload with one WriteByte per byte and reports how many
// bytes went out before any failure
func writeBytes(w io.ByteWriter, payload []byte) (int, error) {
	for i, b := range payload {
		if err := w.WriteByte(b); err != nil {
			return i, fmt.Errorf("writing byte %d: %w", i, err)
		}
	}
	return len(payload), nil
}

var _ io.ByteWriter = (*serialport.Port)(nil)
