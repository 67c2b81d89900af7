// Command moduleenginectl boots the module scheduler against a bootstrap
// script and drives its host frame loop until interrupted.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/moduleengine/engine"
	"github.com/joeycumines/moduleengine/hostapi"
	"github.com/joeycumines/moduleengine/internal/enginelog"
	"github.com/joeycumines/moduleengine/registry"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("moduleenginectl", flag.ExitOnError)
	scriptPath := fs.String("script", "", "path to the bootstrap script (required)")
	baseTick := fs.Duration("base-tick", engine.DefaultBaseTick, "worker base tick period")
	joinDeadline := fs.Duration("join-deadline", engine.DefaultJoinDeadline, "worker shutdown join deadline")
	faultThreshold := fs.Int("fault-threshold", 0, "consecutive-failure count that disables a module (0 = default)")
	logLevel := fs.String("log-level", "info", "structured log level: emerg, alert, crit, error, warning, notice, info, debug, trace, off")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *scriptPath == "" {
		fs.Usage()
		return fmt.Errorf("moduleenginectl: -script is required")
	}

	src, err := os.ReadFile(*scriptPath)
	if err != nil {
		return fmt.Errorf("moduleenginectl: reading script: %w", err)
	}

	level, err := parseLogLevel(*logLevel)
	if err != nil {
		return err
	}
	logger := enginelog.New(os.Stderr, level)

	c := engine.New(
		engine.WithBaseTick(*baseTick),
		engine.WithJoinDeadline(*joinDeadline),
		engine.WithFaultThreshold(*faultThreshold),
		engine.WithLogger(logger),
	)

	rt := goja.New()
	enableScripting(rt, logger)

	reg := registry.New()
	if err := hostapi.Bind(rt, reg, c); err != nil {
		return fmt.Errorf("moduleenginectl: binding host API: %w", err)
	}
	if _, err := rt.RunString(string(src)); err != nil {
		return fmt.Errorf("moduleenginectl: running bootstrap script: %w", err)
	}

	if err := c.Start(rt, reg); err != nil {
		return fmt.Errorf("moduleenginectl: starting engine: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		c.SetExiting()
	}()

	return c.Run(engine.FrameHooks{})
}

// enableScripting wires the goja_nodejs require module loader (so a
// bootstrap script can split module definitions across files with
// require('./modules/physics')) and a console global whose log/warn/error
// calls are routed through logger instead of stdout.
func enableScripting(rt *goja.Runtime, logger *enginelog.Logger) {
	modLoader := require.NewRegistry()
	modLoader.Enable(rt)
	modLoader.RegisterNativeModule("console", console.RequireWithPrinter(consolePrinter{logger}))
	console.Enable(rt)
}

// consolePrinter adapts logiface to goja_nodejs's console.Printer
// interface, so script-side console.log/warn/error surface as structured
// log events alongside the engine's own.
type consolePrinter struct {
	logger *enginelog.Logger
}

func (p consolePrinter) Log(s string) {
	p.logger.Info().Str("source", "console").Log(s)
}

func (p consolePrinter) Warn(s string) {
	p.logger.Warning().Str("source", "console").Log(s)
}

func (p consolePrinter) Error(s string) {
	p.logger.Err().Str("source", "console").Log(s)
}

func parseLogLevel(s string) (logiface.Level, error) {
	switch s {
	case "off", "disabled":
		return logiface.LevelDisabled, nil
	case "emerg", "emergency":
		return logiface.LevelEmergency, nil
	case "alert":
		return logiface.LevelAlert, nil
	case "crit", "critical":
		return logiface.LevelCritical, nil
	case "error":
		return logiface.LevelError, nil
	case "warning", "warn":
		return logiface.LevelWarning, nil
	case "notice":
		return logiface.LevelNotice, nil
	case "info", "informational":
		return logiface.LevelInformational, nil
	case "debug":
		return logiface.LevelDebug, nil
	case "trace":
		return logiface.LevelTrace, nil
	default:
		return 0, fmt.Errorf("moduleenginectl: unknown -log-level %q", s)
	}
}
