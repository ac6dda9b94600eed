package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/linuxmatters/soundcheck/internal/analyzer"
	"github.com/linuxmatters/soundcheck/internal/calibration"
	"github.com/linuxmatters/soundcheck/internal/capture"
	"github.com/linuxmatters/soundcheck/internal/cli"
	"github.com/linuxmatters/soundcheck/internal/config"
	"github.com/linuxmatters/soundcheck/internal/filters"
	"github.com/linuxmatters/soundcheck/internal/obsws"
	"github.com/linuxmatters/soundcheck/internal/report"
	"github.com/linuxmatters/soundcheck/internal/ui"
)

var (
	version = "0.0.1"
)

// CLI defines the command-line interface
type CLI struct {
	Version  bool   `short:"v" help:"Show version information"`
	Config   string `short:"c" type:"path" help:"Path to TOML config file (optional)"`
	Address  string `short:"a" help:"obs-websocket address (overrides config)" placeholder:"ws://host:port"`
	Password string `short:"p" help:"obs-websocket password (overrides config)"`
	Device   string `short:"d" help:"Local capture device (overrides config)"`
	Input    string `short:"i" help:"Microphone input to calibrate, skipping selection"`
	Snapshot string `type:"path" help:"Path for saving and resuming session state"`
	Report   string `short:"r" type:"path" help:"Write the calibration report to this file"`
	NoApply  bool   `help:"Measure and derive only, never touch the streaming host"`
}

func main() {
	cliArgs := &CLI{}
	kong.Parse(cliArgs,
		kong.Name("soundcheck"),
		kong.Description("Guided microphone calibration for live streaming"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	if cliArgs.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}

	if err := run(cliArgs); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}

func run(cliArgs *CLI) error {
	cfg, err := config.Load(cliArgs.Config)
	if err != nil {
		return err
	}
	if cliArgs.Address != "" {
		cfg.OBS.Address = cliArgs.Address
	}
	if cliArgs.Password != "" {
		cfg.OBS.Password = cliArgs.Password
	}
	if cliArgs.Device != "" {
		cfg.Capture.Device = cliArgs.Device
	}
	if cliArgs.Input != "" {
		cfg.OBS.Input = cliArgs.Input
	}

	// Local capture feeds the analyzer for the whole run.
	source := capture.NewCommandSource(cfg.Capture.Device, cfg.Capture.FFmpegPath)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := source.Start(ctx); err != nil {
		return fmt.Errorf("starting audio capture: %w", err)
	}
	defer source.Stop()

	an := analyzer.New()
	if err := an.Start(source); err != nil {
		return err
	}
	defer an.Stop()

	session, err := calibration.NewSession(cfg.CalibrationProtocol(), an)
	if err != nil {
		return err
	}
	if cliArgs.Snapshot != "" {
		if err := restoreSnapshot(session, cliArgs.Snapshot); err != nil {
			return err
		}
	}

	// The host connection is optional: without it the wizard measures
	// and reports but applies nothing.
	var client *obsws.Client
	hooks := ui.Hooks{}
	if !cliArgs.NoApply {
		dialCtx, dialCancel := context.WithTimeout(ctx, 10*time.Second)
		client, err = obsws.Dial(dialCtx, cfg.OBS.Address, cfg.OBS.Password)
		dialCancel()
		if err != nil {
			cli.PrintError(fmt.Sprintf("%v - continuing in measure-only mode", err))
		} else {
			defer client.Close()
			hooks = hostHooks(ctx, client, cfg.OBS.Input)
		}
	}

	model := ui.NewModel(an, session, cfg.DeriveOptions(), hooks)
	if cfg.OBS.Input != "" {
		model.Input = cfg.OBS.Input
	}

	p := tea.NewProgram(model, tea.WithAltScreen())

	// A dying capture process surfaces in the wizard instead of leaving
	// the meters frozen. Send is a no-op once the program has finished.
	captureDone := source.Done()
	go func() {
		<-captureDone
		p.Send(ui.CaptureErrorMsg{Err: errors.New("audio capture ended unexpectedly")})
	}()

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	m := final.(ui.Model)

	if cliArgs.Snapshot != "" {
		if err := saveSnapshot(session, cliArgs.Snapshot); err != nil {
			cli.PrintError(err.Error())
		}
	}

	return writeOutputs(cliArgs, m, session)
}

// hostHooks wires the wizard's host operations to the websocket client.
// When an input name is preconfigured, selection is skipped.
func hostHooks(ctx context.Context, client *obsws.Client, input string) ui.Hooks {
	hooks := ui.Hooks{
		ListInputs: func() ([]string, error) {
			reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return client.AudioInputs(reqCtx)
		},
		Apply: func(input string, p calibration.Params) (filters.Result, error) {
			reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			return filters.Apply(reqCtx, client, input, filters.Chain(p)), nil
		},
	}
	if input != "" {
		hooks.ListInputs = func() ([]string, error) {
			return []string{input}, nil
		}
	}
	return hooks
}

func restoreSnapshot(session *calibration.Session, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}
	var snap calibration.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parsing snapshot %s: %w", path, err)
	}
	return session.Restore(snap)
}

func saveSnapshot(session *calibration.Session, path string) error {
	data, err := json.MarshalIndent(session.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// writeOutputs renders the report to the requested file, or a short
// summary to stdout after the alt screen closes.
func writeOutputs(cliArgs *CLI, m ui.Model, session *calibration.Session) error {
	if m.Err != nil {
		return m.Err
	}
	// A partial session has no derived parameters; the snapshot carries
	// its progress instead.
	if !session.Complete() {
		return nil
	}
	agg := session.Aggregate()

	data := report.Data{
		Input:      m.Input,
		Timestamp:  time.Now(),
		StepLabels: ui.StepLabels(session.Protocol().Steps),
		Steps:      session.Steps(),
		Aggregate:  agg,
		Params:     m.Params,
		Applied:    m.ApplyResult.Applied,
		Failed:     m.ApplyResult.Failed,
	}

	if cliArgs.Report != "" {
		f, err := os.Create(cliArgs.Report)
		if err != nil {
			return fmt.Errorf("creating report file: %w", err)
		}
		defer f.Close()
		report.Write(f, data)
		fmt.Printf("Report written to %s\n", cliArgs.Report)
		return nil
	}

	report.Write(os.Stdout, data)
	return nil
}
