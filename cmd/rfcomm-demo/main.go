//go:build linux

// Demo CLI for the rfcomm package (Linux only)
//
// Prerequisites
//   - Linux with BlueZ (bluetoothd) running and system D-Bus access.
//   - Adapter powered on: `bluetoothctl power on`.
//   - The remote device paired already if it requires pairing.
//
// Modes
//
//  1. Scan for devices:
//     go run ./cmd/rfcomm-demo -mode=scan -timeout=15s
//     Lists Name/MAC and marks devices advertising the Serial Port Profile.
//
//  2. Look up the serial port channel over SDP:
//     go run ./cmd/rfcomm-demo -mode=channel -device 00:16:04:01:21:C0
//
//  3. Connect and bridge stdin/stdout to the serial port:
//     go run ./cmd/rfcomm-demo -mode=connect -device 00:16:04:01:21:C0
//     Without -device (and without RFCOMM_DEVICE) it scans and prompts.
//     -channel skips the SDP lookup.
//
// Notes
//   - Ctrl-C cancels via context.
//   - -timeout bounds the scan and the connect, not the session afterwards.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bluetooth-serial/internal/rfcomm"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	var device rfcomm.Address
	mode := flag.String("mode", "scan", "mode: scan|channel|connect")
	flag.TextVar(&device, "device", rfcomm.AnyAddress(), "remote address XX:XX:XX:XX:XX:XX (default $RFCOMM_DEVICE)")
	timeout := flag.Duration("timeout", 15*time.Second, "scan duration / connect timeout")
	channel := flag.Uint("channel", 0, "RFCOMM channel; 0 looks it up over SDP")
	verbose := flag.Bool("v", false, "log connection progress")
	flag.Parse()

	if device.IsAny() {
		if env := os.Getenv("RFCOMM_DEVICE"); env != "" {
			a, err := rfcomm.ParseAddress(env)
			if err != nil {
				log.Fatalf("RFCOMM_DEVICE: %v", err)
			}
			device = a
		}
	}
	if *channel > 30 {
		log.Fatalf("-channel %d out of range 1..30", *channel)
	}

	// Ctrl-C cancels everything; the timeout only bounds setup.
	root, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []rfcomm.Option{rfcomm.WithChannel(uint8(*channel))}
	if *verbose {
		opts = append(opts, rfcomm.WithLogger(log.Default()))
	}

	switch strings.ToLower(*mode) {
	case "scan":
		runScan(root, *timeout, opts)
	case "channel":
		runChannel(root, device, *timeout, opts)
	case "connect":
		runConnect(root, device, *timeout, opts)
	default:
		log.Fatalf("unknown mode: %s", *mode)
	}
}

func runScan(ctx context.Context, timeout time.Duration, opts []rfcomm.Option) {
	devs := scan(ctx, timeout, opts)
	if len(devs) == 0 {
		fmt.Println("no devices found")
		return
	}
	printDevices(devs)
}

func runChannel(ctx context.Context, addr rfcomm.Address, timeout time.Duration, opts []rfcomm.Option) {
	if addr.IsAny() {
		log.Fatal("-device is required in channel mode")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	q := rfcomm.NewChannelQuery(addr, opts...)
	defer q.Close()
	if err := rfcomm.Drive(ctx, q); err != nil {
		if errors.Is(err, rfcomm.ErrNoService) {
			log.Fatalf("%s does not offer a serial port", addr)
		}
		log.Fatalf("channel lookup error: %v", err)
	}
	fmt.Printf("%s: serial port on channel %d (%d SDP round(s))\n", addr, q.Channel(), q.Rounds())
}

func runConnect(ctx context.Context, addr rfcomm.Address, timeout time.Duration, opts []rfcomm.Option) {
	if addr.IsAny() {
		fmt.Println("Scanning for devices to choose...")
		devs := scan(ctx, timeout, opts)
		if len(devs) == 0 {
			fmt.Println("no devices found")
			return
		}
		printDevices(devs)
		fmt.Print("Choose index: ")
		addr = devs[readIndex(len(devs))].Addr
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	log.Printf("Connecting to %s (timeout=%s)...", addr, deadlineStr(dialCtx))
	f, err := rfcomm.Dial(dialCtx, addr, opts...)
	cancel()
	if err != nil {
		log.Fatalf("Connect error: %v", err)
	}
	defer f.Close()
	fmt.Printf("CONNECTED: fd=%d dev=%s\n", f.Fd(), addr)

	done := make(chan error, 2)
	go func() {
		_, err := io.Copy(os.Stdout, f)
		done <- err
	}()
	go func() {
		_, err := io.Copy(f, os.Stdin)
		done <- err
	}()
	select {
	case <-ctx.Done():
		log.Printf("context done: %v", ctx.Err())
	case err := <-done:
		if err != nil {
			log.Printf("session ended: %v", err)
		}
	}
}

func scan(ctx context.Context, timeout time.Duration, opts []rfcomm.Option) []rfcomm.Device {
	devs, err := rfcomm.ScanDevices(ctx, timeout, opts...)
	if err != nil {
		log.Fatalf("ScanDevices error: %v", err)
	}
	return devs
}

func printDevices(devs []rfcomm.Device) {
	for i, d := range devs {
		spp := ""
		if d.Serial {
			spp = " [SPP]"
		}
		fmt.Printf("[%d] MAC=%s Name=%s%s\n", i, d.Addr, d.Name, spp)
	}
}

func readIndex(n int) int {
	r := bufio.NewReader(os.Stdin)
	for {
		line, err := r.ReadString('\n')
		i, perr := strconv.Atoi(strings.TrimSpace(line))
		if perr == nil && i >= 0 && i < n {
			return i
		}
		if err != nil {
			log.Fatalf("read choice: %v", err)
		}
		fmt.Printf("enter 0..%d: ", n-1)
	}
}

func deadlineStr(ctx context.Context) string {
	if d, ok := ctx.Deadline(); ok {
		return time.Until(d).Truncate(time.Second).String()
	}
	return "none"
}
