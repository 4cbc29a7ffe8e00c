/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/allbin/go-serialport"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// logger is configured in initConfig from --log-level
var logger = zerolog.Nop()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "serialport",
	Short: "Configure and exchange bytes with serial ports",
	Long: `serialport opens a serial device in raw mode, applies line parameters
and moves bytes in and out of it one at a time.

Line parameters come from flags, SERIALPORT_* environment variables or a YAML
config file, in that order of precedence:

  baud: 115200
  data-bits: 8
  parity: none
  stop-bits: 1
  flow-control: none

The device's original settings are restored when a command exits.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.serialport.yaml)")
	flags.StringP("baud", "b", "9600", "Baud rate")
	flags.StringP("data-bits", "d", "8", "Data bits (5, 6, 7, 8)")
	flags.StringP("parity", "p", "none", "Parity (none, odd, even)")
	flags.StringP("stop-bits", "s", "1", "Stop bits (1, 2)")
	flags.String("flow-control", "none", "Flow control (none, hardware)")
	flags.Duration("poll-interval", time.Millisecond, "Pause between input queue checks while waiting for a byte")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")

	for _, name := range []string{"baud", "data-bits", "parity", "stop-bits", "flow-control", "poll-interval", "log-level"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".serialport" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".serialport")
	}

	viper.SetEnvPrefix("serialport")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	configErr := viper.ReadInConfig()

	level, err := zerolog.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		level = zerolog.WarnLevel
	}
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()

	if configErr == nil {
		logger.Debug().Str("file", viper.ConfigFileUsed()).Msg("using config file")
	} else if cfgFile != "" {
		logger.Warn().Err(configErr).Msg("config file not read")
	}
}

// portOptions converts the configured line parameters into port options
func portOptions() ([]serialport.Option, error) {
	baud, err := serialport.ParseBaudRate(viper.GetString("baud"))
	if err != nil {
		return nil, err
	}
	size, err := serialport.ParseCharSize(viper.GetString("data-bits"))
	if err != nil {
		return nil, err
	}
	parity, err := serialport.ParseParity(viper.GetString("parity"))
	if err != nil {
		return nil, err
	}
	stopBits, err := serialport.ParseStopBits(viper.GetString("stop-bits"))
	if err != nil {
		return nil, err
	}
	flow, err := serialport.ParseFlowControl(viper.GetString("flow-control"))
	if err != nil {
		return nil, err
	}

	return []serialport.Option{
		serialport.WithBaudRate(baud),
		serialport.WithCharSize(size),
		serialport.WithParity(parity),
		serialport.WithStopBits(stopBits),
		serialport.WithFlowControl(flow),
		serialport.WithPollInterval(viper.GetDuration("poll-interval")),
		serialport.WithLogger(logger),
	}, nil
}

// openPort opens portPath with the configured line parameters
func openPort(portPath string) (*serialport.Port, error) {
	opts, err := portOptions()
	if err != nil {
		return nil, err
	}
	port, err := serialport.Open(portPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", portPath, err)
	}
	return port, nil
}
