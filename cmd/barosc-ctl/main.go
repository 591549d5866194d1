// ABOUTME: Remote control CLI for a running barosc
// ABOUTME: Finds the oscillator via mDNS or -server and sends one command
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/barosc/barosc-go/internal/client"
	"github.com/barosc/barosc-go/internal/discovery"
	"github.com/barosc/barosc-go/internal/display"
	"github.com/barosc/barosc-go/internal/protocol"
	"github.com/barosc/barosc-go/internal/version"
	"github.com/barosc/barosc-go/pkg/waveform"
)

var (
	serverAddr = flag.String("server", "", "Server address host:port (default: discover via mDNS)")
	timeout    = flag.Duration("timeout", 10*time.Second, "Discovery and command timeout")
	verbose    = flag.Bool("v", false, "Log connection details")
)

const usage = `usage: barosc-ctl [flags] <command> [value]

commands:
  status             show the oscillator state
  start | stop       start or stop playback
  wave <type>        sine, square, white or pink
  amp <0.0-1.0>      set the amplitude
  freq <20-20000>    set the frequency in Hz
  watch              print every status change until interrupted
`

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if !*verbose {
		log.SetOutput(io.Discard)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cmd, err := parseCommand(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "barosc-ctl: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	addr := *serverAddr
	if addr == "" {
		server, err := discovery.NewManager(discovery.Config{}).Lookup(ctx)
		if err != nil {
			fatal(err)
		}
		addr = server.Addr()
	}

	hostname, _ := os.Hostname()
	c := client.NewClient(client.Config{
		ServerAddr: addr,
		ClientID:   uuid.New().String(),
		Name:       fmt.Sprintf("%s-barosc-ctl", hostname),
		DeviceInfo: protocol.DeviceInfo{
			ProductName:     version.Product + " Remote",
			Manufacturer:    version.Manufacturer,
			SoftwareVersion: version.Version,
		},
	})
	if err := c.Connect(); err != nil {
		fatal(err)
	}
	defer c.Close()

	if args[0] == "watch" {
		watch(c)
		return
	}

	status, err := c.Do(ctx, cmd)
	if err != nil {
		fatal(err)
	}
	printStatus(c.ServerHello().Name, status)
}

// parseCommand turns CLI arguments into a protocol command
func parseCommand(args []string) (protocol.Command, error) {
	needValue := func() (float64, error) {
		if len(args) < 2 {
			return 0, fmt.Errorf("%s needs a value", args[0])
		}
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid value %q: %w", args[1], err)
		}
		return v, nil
	}

	switch args[0] {
	case "status", "watch":
		return protocol.Command{Command: protocol.CommandStatus}, nil
	case "start":
		return protocol.Command{Command: protocol.CommandStart}, nil
	case "stop":
		return protocol.Command{Command: protocol.CommandStop}, nil
	case "wave":
		if len(args) < 2 {
			return protocol.Command{}, fmt.Errorf("wave needs a type")
		}
		w, err := waveform.ParseWaveType(args[1])
		if err != nil {
			return protocol.Command{}, err
		}
		return protocol.Command{Command: protocol.CommandSetWaveType, WaveType: w.String()}, nil
	case "amp":
		v, err := needValue()
		if err != nil {
			return protocol.Command{}, err
		}
		return protocol.Command{Command: protocol.CommandSetAmplitude, Value: &v}, nil
	case "freq":
		v, err := needValue()
		if err != nil {
			return protocol.Command{}, err
		}
		return protocol.Command{Command: protocol.CommandSetFrequency, Value: &v}, nil
	}
	return protocol.Command{}, fmt.Errorf("unknown command %q", args[0])
}

// watch prints status updates until interrupted or disconnected
func watch(c *client.Client) {
	name := c.ServerHello().Name
	printStatus(name, c.InitialStatus())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case status := <-c.Statuses:
			printStatus(name, status)
		case perr := <-c.Errors:
			fmt.Fprintf(os.Stderr, "error: %v\n", perr)
		case <-sigChan:
			return
		}
		if !c.IsConnected() {
			return
		}
	}
}

func printStatus(name string, s protocol.Status) {
	title := s.WaveType
	if w, err := waveform.ParseWaveType(s.WaveType); err == nil {
		title = w.Title()
	}
	fmt.Printf("%s: %s, %s, %s, %s (%d Hz)\n", name, s.State, title,
		display.AmplitudeTitle(s.Amplitude), display.FrequencyTitle(s.Frequency), s.SampleRate)
	if s.Error != "" {
		fmt.Printf("  last error: %s\n", s.Error)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "barosc-ctl: %v\n", err)
	os.Exit(1)
}
