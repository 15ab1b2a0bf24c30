package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"tinycore/core"
	"tinycore/host/monitor"
	"tinycore/host/serial"
)

var (
	device     = flag.String("device", "", "Serial device path (default from config, /dev/ttyUSB0)")
	baud       = flag.Int("baud", 0, "Baud rate (default from config, 115200)")
	configPath = flag.String("config", "", "JSON configuration file")
	simulate   = flag.Bool("sim", false, "Monitor an in-process simulated board instead of a serial port")
	duration   = flag.Duration("duration", 0, "Stop after this long (0 = until interrupted)")
	verbose    = flag.Bool("verbose", false, "Print every decoded message")
)

func main() {
	flag.Parse()

	fmt.Println("tinycore monitor - clock and pin interrupt telemetry")
	fmt.Println("====================================================")

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	stats, err := run(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	stats.Print(os.Stdout)
	if !stats.Healthy() {
		os.Exit(2)
	}
}

// loadConfig reads the config file, if any, and applies flags on top.
func loadConfig() (*monitor.Config, error) {
	cfg := monitor.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = monitor.LoadConfigFile(*configPath); err != nil {
			return nil, err
		}
	}
	if *device != "" {
		cfg.Device = *device
	}
	if *baud != 0 {
		cfg.Baud = *baud
	}
	if *verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *monitor.Config) (monitor.Stats, error) {
	var src io.Reader
	var closeSrc func() error
	errc := make(chan error, 1)

	if *simulate {
		if cfg.Verbose {
			// The simulated board shares this process, so its debug
			// output goes straight to stderr.
			core.SetDebugWriter(func(s string) { fmt.Fprintln(os.Stderr, s) })
			core.SetDebugEnabled(true)
			core.InitAsyncDebug()
		}
		lb, err := monitor.NewLoopback(cfg.Sim)
		if err != nil {
			return monitor.Stats{}, fmt.Errorf("simulated board: %w", err)
		}
		p := lb.Plan()
		fmt.Printf("Simulating class %s timer at %d Hz, divider %d\n", p.Class, p.CPUFrequency, p.Divider)
		go func() { errc <- lb.Run(ctx) }()
		src, closeSrc = lb.Reader(), lb.Close
	} else {
		port, err := serial.Open(cfg.SerialConfig())
		if err != nil {
			return monitor.Stats{}, err
		}
		fmt.Printf("Listening on %s at %d baud\n", cfg.Device, cfg.Baud)
		port.Flush()
		src, closeSrc = port, port.Close
		errc <- nil
	}

	start := time.Now()
	m := monitor.New(src, cfg, os.Stdout)
	runErr := m.Run(ctx)
	closeSrc()
	if err := <-errc; err != nil && runErr == nil {
		runErr = err
	}
	fmt.Printf("Monitored for %s\n", time.Since(start).Round(time.Millisecond))
	return m.Stats(), runErr
}
