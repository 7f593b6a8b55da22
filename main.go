// blutil is a command line tool for programming BL600 "smartBASIC" modules
// over a serial link: compile source to bytecode, upload and run it, and
// manage the module's file system through AT commands.
//
// Exactly one operation is performed per invocation. Loading a .sb file
// compiles it first; running a .sb or .uwc file uploads it first.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dsiganos/blutil/compile"
	"github.com/dsiganos/blutil/device"
	"github.com/dsiganos/blutil/errcode"
)

// operation is the single action requested for this invocation, after
// auto-chaining: run implies load for uncompiled or not-yet-uploaded input,
// load implies compile for uncompiled source.
type operation struct {
	compile string
	load    string
	run     string
	remove  string
	at      string
	list    bool
	format  bool
	listen  bool
}

// selected counts the primary operations requested on the command line.
func (o *operation) selected() int {
	n := 0
	for _, set := range []bool{
		o.compile != "", o.load != "", o.run != "",
		o.remove != "", o.at != "",
		o.list, o.format, o.listen,
	} {
		if set {
			n++
		}
	}
	return n
}

// chain expands the requested operation into its prerequisites.
func (o *operation) chain() {
	if o.run != "" {
		switch filepath.Ext(o.run) {
		case ".uwc", ".sb":
			o.load = o.run
		}
	}
	if o.load != "" && filepath.Ext(o.load) == ".sb" {
		o.compile = o.load
	}
}

func main() {
	var op operation
	var configPath string

	flag.String("p", "", "Serial port to connect to")
	flag.String("port", "", "Serial port to connect to")
	flag.Int("b", 9600, "Baud rate for connection")
	flag.Int("baud", 9600, "Baud rate for connection")
	flag.String("m", "", "Specify (instead of detecting) the model number; only valid with -c")
	flag.String("model", "", "Specify (instead of detecting) the model number; only valid with -c")
	flag.Bool("no-dtr", false, "Don't toggle the DTR line as a reset")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&configPath, "config", "", "Path to a TOML configuration file")

	flag.StringVar(&op.compile, "c", "", "Compile specified smartBASIC file to a .uwc file")
	flag.StringVar(&op.compile, "compile", "", "Compile specified smartBASIC file to a .uwc file")
	flag.StringVar(&op.load, "l", "", "Upload specified file to the module (.sb files are compiled first)")
	flag.StringVar(&op.load, "load", "", "Upload specified file to the module (.sb files are compiled first)")
	flag.StringVar(&op.run, "r", "", "Execute specified file on the module (compiled and uploaded first as needed)")
	flag.StringVar(&op.run, "run", "", "Execute specified file on the module (compiled and uploaded first as needed)")
	flag.BoolVar(&op.list, "ls", false, "List all files stored on the module")
	flag.StringVar(&op.remove, "rm", "", "Remove specified file from the module")
	flag.BoolVar(&op.format, "format", false, "Erase all stored files from the module")
	flag.StringVar(&op.at, "at", "", "Run a raw AT command")
	flag.BoolVar(&op.listen, "listen", false, "Listen over serial for incoming messages, e.g. from print statements")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithFile(configPath), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(2)
	}

	if op.selected() != 1 {
		fmt.Fprintln(os.Stderr, "exactly one of -c, -l, -r, --ls, --rm, --format, --at, --listen is required")
		flag.Usage()
		os.Exit(2)
	}
	if (config.Port == "") == (config.Model == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -p and -m is required")
		flag.Usage()
		os.Exit(2)
	}
	if config.Model != "" && op.compile == "" {
		fmt.Fprintln(os.Stderr, "-m can only be used when compiling with -c")
		flag.Usage()
		os.Exit(2)
	}

	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	op.chain()

	if err := run(config, logger, op); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var tErr *device.TransportError
		if errors.As(err, &tErr) {
			os.Exit(3)
		}
		os.Exit(2)
	}
}

func run(config *Config, logger *slog.Logger, op operation) error {
	// The description table is optional; without it codes resolve to the
	// generic placeholder.
	var lookup device.Lookup
	if table, err := errcode.Load(config.CodesPath); err == nil {
		lookup = table.Describe
	} else {
		logger.Debug("error code table unavailable", "error", err)
	}

	// Compiling against a caller-supplied model needs no serial link, and
	// without one the online fallback has nothing to query.
	if config.Model != "" {
		dispatcher := &compile.Dispatcher{
			Model:  strings.ReplaceAll(config.Model, " ", "_"),
			Dir:    config.CompilerDir,
			Logger: logger.With("component", "compile"),
		}
		artifact, err := dispatcher.Compile(op.compile)
		if err != nil {
			return err
		}
		fmt.Println(artifact)
		return nil
	}

	dev, err := device.New(context.Background(), device.Config{
		Dialer: device.SerialDialer{
			PortName: config.Port,
			BaudRate: config.Baud,
		},
		DisableReset: config.NoReset,
		Lookup:       lookup,
		Logger:       logger.With("component", "device"),
	})
	if err != nil {
		return err
	}
	defer dev.Close()

	if err := dev.Reset(); err != nil {
		return err
	}
	if op.compile != "" || op.run != "" {
		if err := dev.Identify(); err != nil {
			return err
		}
	}

	if op.list {
		fmt.Println("Listing files...")
		out, err := dev.List()
		if err != nil {
			return err
		}
		fmt.Println(out)
	}
	if op.remove != "" {
		fmt.Printf("Removing %s...\n", device.RemoteName(op.remove))
		if err := dev.Delete(op.remove); err != nil {
			return err
		}
		fmt.Println("Deleted.")
	}
	if op.format {
		fmt.Println("Formatting module...")
		if err := dev.Format(); err != nil {
			return err
		}
		fmt.Println("Format complete.")
	}
	if op.compile != "" {
		dispatcher := &compile.Dispatcher{
			Model: dev.Model(),
			Dir:   config.CompilerDir,
			Online: &compile.Online{
				URL:         config.CompileURL,
				DevicesPath: config.DevicesPath,
				Params:      dev,
				Logger:      logger.With("component", "compile"),
			},
			Logger: logger.With("component", "compile"),
		}
		if _, err := dispatcher.Compile(op.compile); err != nil {
			return err
		}
	}
	if op.load != "" {
		remote, err := dev.Upload(op.load)
		if err != nil {
			return err
		}
		fmt.Printf("Upload success: %s\n", remote)
	}
	if op.run != "" {
		fmt.Printf("Running %s...\n", device.RemoteName(op.run))
		res, err := dev.Run(op.run)
		if err != nil {
			return err
		}
		printRunResult(res)
	}
	if op.at != "" {
		out, err := dev.Command(op.at)
		if err != nil {
			return err
		}
		fmt.Println(out)
		fmt.Println("Command completed")
	}
	if op.listen {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := dev.Listen(ctx, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		fmt.Println()
	}
	return nil
}

func printRunResult(res device.RunResult) {
	switch res.Outcome {
	case device.RunCompleted:
		if res.Output != "" {
			fmt.Printf("Output:\n%s\n", res.Output)
		}
		fmt.Println("Program completed successfully.")
	case device.RunDeviceError:
		fmt.Printf("Error %s: %s\n", res.Code, res.Description)
	case device.RunImmediate:
		fmt.Printf("Immediate output:\n%s\n", res.Output)
	case device.RunSilent:
		// The bare status literal: not output, not an error.
	case device.RunPending:
		fmt.Println("No immediate output, program probably running...")
	}
}
