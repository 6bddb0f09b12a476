// Command isoal-replay feeds a capture of received ISO Data PDUs through an
// isoal sink and prints every reassembled SDU as a JSON line.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "isoal-replay"
	app.Usage = "reassemble SDUs from a PDU capture"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "input, i", Value: "-", Usage: "trace file, - for stdin"},
		cli.StringFlag{Name: "format, f", Value: "bin", Usage: "trace format: bin or json"},
		cli.StringFlag{Name: "serial", Usage: "read binary records from this uart instead of a file"},
		cli.UintFlag{Name: "baud", Value: 1000000, Usage: "uart baud rate"},
		cli.UintFlag{Name: "conn", Value: 0, Usage: "connection handle"},
		cli.StringFlag{Name: "label", Value: "sink0", Usage: "sink label for output and metrics"},
		cli.StringFlag{Name: "role", Value: "peripheral", Usage: "central or peripheral"},
		cli.UintFlag{Name: "bn", Value: 1, Usage: "burst number"},
		cli.UintFlag{Name: "ft", Value: 1, Usage: "flush timeout"},
		cli.UintFlag{Name: "sdu-interval", Value: 10000, Usage: "SDU interval in microseconds"},
		cli.UintFlag{Name: "iso-interval", Value: 8, Usage: "ISO interval in 1.25 ms units"},
		cli.UintFlag{Name: "cis-sync-delay", Usage: "CIS sync delay in microseconds"},
		cli.UintFlag{Name: "cig-sync-delay", Usage: "CIG sync delay in microseconds"},
		cli.IntFlag{Name: "sdu-size-max", Usage: "SDU buffer size hint, 0 to use --buf-size"},
		cli.IntFlag{Name: "buf-size", Value: 251, Usage: "SDU buffer size"},
		cli.StringFlag{Name: "session-cache", Usage: "json file to restore and store the sink config"},
		cli.StringFlag{Name: "metrics-addr", Usage: "serve prometheus metrics on this address"},
		cli.StringFlag{Name: "log-level", Value: "info", Usage: "log level: error, warn, info, debug"},
		cli.BoolFlag{Name: "verbose, v", Usage: "log everything"},
	}
	app.Action = run
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
