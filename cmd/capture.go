/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/allbin/go-serialport"
	"github.com/spf13/cobra"
)

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:   "capture <port> <output-file>",
	Short: "Capture serial data to a file",
	Long: `Capture incoming serial data to a file for later parsing.

Reads bytes from the specified serial port and writes them to the output
file. Runs until interrupted (Ctrl+C) or until --duration elapses.

The output file is opened in append mode, allowing you to resume captures
without overwriting existing data.

Example usage:
  serialport capture /dev/ttyUSB0 data.log
  serialport capture /dev/ttyUSB0 output.txt --baud 9600
  serialport capture /dev/ttyUSB0 capture.log --console
  serialport capture /dev/ttyUSB0 capture.log --duration 30s`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		showConsole, _ := cmd.Flags().GetBool("console")
		duration, _ := cmd.Flags().GetDuration("duration")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if duration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, duration)
			defer cancel()
		}

		return runCapture(ctx, args[0], args[1], showConsole)
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().BoolP("console", "c", false, "Display incoming data on console while capturing")
	captureCmd.Flags().Duration("duration", 0, "Stop after this long (0 runs until interrupted)")
}

func runCapture(ctx context.Context, portPath, outputPath string, showConsole bool) error {
	port, err := openPort(portPath)
	if err != nil {
		return err
	}
	defer port.Close()

	file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer file.Close()

	var console io.Writer
	if showConsole {
		console = os.Stdout
	}

	fmt.Fprintf(os.Stderr, "Capturing data from %s to %s\n", portPath, outputPath)
	fmt.Fprintf(os.Stderr, "Press Ctrl+C to stop\n\n")

	start := time.Now()
	n, err := captureBuffered(ctx, port, file, console)
	if err != nil {
		return fmt.Errorf("capturing to %s: %w", outputPath, err)
	}

	fmt.Fprintf(os.Stderr, "\nCapture complete: %d bytes written in %v\n", n, time.Since(start).Round(time.Millisecond))
	return nil
}

// captureBuffered runs captureBytes through a buffer on dst, mirroring to
// console when it is not nil. The buffer is flushed before returning and a
// failed flush is reported.
func captureBuffered(ctx context.Context, src byteSource, dst, console io.Writer) (int64, error) {
	out := bufio.NewWriter(dst)
	var sink io.Writer = out
	if console != nil {
		sink = io.MultiWriter(out, console)
	}

	n, err := captureBytes(ctx, src, sink)
	if ferr := out.Flush(); ferr != nil && err == nil {
		err = fmt.Errorf("flush: %w", ferr)
	}
	return n, err
}

// byteSource is the part of a Port the capture loop reads from
type byteSource interface {
	ReadByteContext(ctx context.Context) (byte, error)
}

// captureBytes copies bytes to w until ctx ends. Cancellation is a clean stop.
func captureBytes(ctx context.Context, src byteSource, w io.Writer) (int64, error) {
	var n int64
	buf := make([]byte, 1)
	for {
		b, err := src.ReadByteContext(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return n, nil
			}
			return n, fmt.Errorf("read error: %w", err)
		}

		buf[0] = b
		if _, err := w.Write(buf); err != nil {
			return n, fmt.Errorf("write error: %w", err)
		}
		n++
	}
}

var _ byteSource = (*serialport.Port)(nil)
