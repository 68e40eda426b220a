package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"

	"github.com/valerio/gbcore/gbcore"
	"github.com/valerio/gbcore/gbcore/config"
	"github.com/valerio/gbcore/gbcore/debug"
	"github.com/valerio/gbcore/gbcore/render"
	"github.com/valerio/gbcore/gbcore/serial"
	"github.com/valerio/gbcore/gbcore/timing"
)

var runCommand = cli.Command{
	Name:      "run",
	Usage:     "Run one or more ROMs headless, or preview the first in the terminal",
	ArgsUsage: "<ROM file>...",
	Flags: []cli.Flag{
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run (0 = until interrupted, terminal only)",
			Value: 60,
		},
		cli.StringFlag{
			Name:  "config",
			Usage: "Path to a TOML config file (default: user config directory)",
		},
		cli.StringFlag{
			Name:  "mode",
			Usage: "Hardware mode: dmg, cgb or sgb (overrides the config file)",
		},
		cli.BoolFlag{Name: "no-ppu", Usage: "Disable the PPU"},
		cli.BoolFlag{Name: "no-apu", Usage: "Disable the APU"},
		cli.BoolFlag{Name: "no-dma", Usage: "Disable OAM DMA"},
		cli.BoolFlag{Name: "no-timer", Usage: "Disable the timer"},
		cli.BoolFlag{Name: "no-serial", Usage: "Disable the serial port"},
		cli.StringFlag{
			Name:  "snapshot",
			Usage: "Save the last frame of the first ROM as PNG",
		},
		cli.BoolFlag{
			Name:  "terminal",
			Usage: "Preview the first ROM in the terminal",
		},
		cli.Float64Flag{
			Name:  "speed",
			Usage: "Terminal preview speed multiplier (0 = unthrottled)",
			Value: 1,
		},
		cli.BoolFlag{
			Name:  "dump-state",
			Usage: "Print the machine state of every ROM as JSON when done",
		},
		cli.BoolFlag{
			Name:  "serial-log",
			Usage: "Log bytes sent over the serial port",
		},
		cli.StringFlag{
			Name:  "save",
			Usage: "Battery RAM file for the first ROM, loaded before and written after the run",
		},
		cli.StringFlag{
			Name:  "load-state",
			Usage: "BESS save state to restore into the first ROM before the run",
		},
		cli.StringFlag{
			Name:  "save-state",
			Usage: "Write a BESS save state of the first ROM after the run",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
		},
	},
	Action: runEmulator,
}

// runSettings is what a single ROM run needs from the command line.
type runSettings struct {
	opts     []gbcore.Option
	frames   int
	snapshot string
	terminal bool
	speed    float64
	save     string
	loadFrom string
	saveTo   string
	dump     bool
	serial   bool
	logger   *slog.Logger
}

func runEmulator(c *cli.Context) error {
	if c.NArg() == 0 {
		cli.ShowCommandHelp(c, "run")
		return errors.New("no ROM path provided")
	}
	logger := setupLogger(c.Bool("debug"))

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}

	frames := c.Int("frames")
	if frames < 0 || (frames == 0 && !c.Bool("terminal")) {
		return errors.New("--frames must be positive outside of terminal mode")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		mu     sync.Mutex
		states = make([][]byte, c.NArg())
	)

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range c.Args() {
		first := i == 0
		s := runSettings{
			opts:     opts,
			frames:   frames,
			terminal: first && c.Bool("terminal"),
			speed:    c.Float64("speed"),
			dump:     c.Bool("dump-state"),
			serial:   c.Bool("serial-log"),
			logger:   logger.With("rom", filepath.Base(path)),
		}
		if first {
			s.snapshot = c.String("snapshot")
			s.save = c.String("save")
			s.loadFrom = c.String("load-state")
			s.saveTo = c.String("save-state")
		}

		g.Go(func() error {
			state, err := runROM(ctx, path, s)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			mu.Lock()
			states[i] = state
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if c.Bool("dump-state") {
		for _, state := range states {
			fmt.Println(string(state))
		}
	}
	return nil
}

// loadConfig reads --config, or the default file when present, then applies
// the command line overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else if path, pathErr := config.DefaultPath(); pathErr == nil {
		cfg, err = config.LoadOrDefault(path)
	} else {
		cfg = config.Default()
	}
	if err != nil {
		return config.Config{}, err
	}

	if mode := c.String("mode"); mode != "" {
		cfg.Mode = strings.ToLower(mode)
	}
	cfg.Enable.PPU = cfg.Enable.PPU && !c.Bool("no-ppu")
	cfg.Enable.APU = cfg.Enable.APU && !c.Bool("no-apu")
	cfg.Enable.DMA = cfg.Enable.DMA && !c.Bool("no-dma")
	cfg.Enable.Timer = cfg.Enable.Timer && !c.Bool("no-timer")
	cfg.Enable.Serial = cfg.Enable.Serial && !c.Bool("no-serial")

	return cfg, cfg.Validate()
}

// runROM runs one ROM to completion and returns its JSON state when
// requested.
func runROM(ctx context.Context, path string, s runSettings) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	opts := append([]gbcore.Option{}, s.opts...)
	opts = append(opts, gbcore.WithLogger(s.logger))

	var serialLog *serial.LogDevice
	if s.serial {
		serialLog = serial.NewLogDevice(serial.WithDeviceLogger(s.logger))
		opts = append(opts, gbcore.WithSerialDevice(serialLog))
	}

	gb := gbcore.New(opts...)
	if err := gb.LoadROM(data); err != nil {
		return nil, err
	}
	s.logger.Info("Running", "cartridge", gb.Cartridge().String(), "clock", gb.ClockFreqString(), "version", gb.Version())

	if s.save != "" {
		if err := loadSave(gb, s.save); err != nil {
			return nil, err
		}
	}

	if s.loadFrom != "" {
		saved, err := os.ReadFile(s.loadFrom)
		if err != nil {
			return nil, err
		}
		if err := gb.LoadState(saved); err != nil {
			return nil, fmt.Errorf("%s: %w", s.loadFrom, err)
		}
		s.logger.Info("State loaded", "path", s.loadFrom)
	}

	if s.terminal {
		err = runTerminal(ctx, gb, s)
	} else {
		err = runHeadless(ctx, gb, s)
	}
	if serialLog != nil {
		serialLog.Flush()
	}
	if err != nil {
		return nil, err
	}

	if s.snapshot != "" {
		if err := debug.SaveFramePNG(s.snapshot, gb.FrameBuffer()); err != nil {
			return nil, err
		}
	}
	if s.save != "" {
		if ram := gb.SaveRAM(); ram != nil {
			if err := os.WriteFile(s.save, ram, 0o644); err != nil {
				return nil, err
			}
			s.logger.Info("Battery RAM saved", "path", s.save, "bytes", len(ram))
		}
	}
	if s.saveTo != "" {
		saved, err := gb.SaveState()
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(s.saveTo, saved, 0o644); err != nil {
			return nil, err
		}
		s.logger.Info("State saved", "path", s.saveTo, "bytes", len(saved))
	}
	if s.dump {
		return debug.Capture(gb).MarshalJSON()
	}
	return nil, nil
}

func runHeadless(ctx context.Context, gb *gbcore.GameBoy, s runSettings) error {
	s.logger.Info("Running headless mode", "frames", s.frames)
	for i := 0; i < s.frames; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := gb.NextFrame(); err != nil {
			return err
		}
		if (i+1)%60 == 0 {
			s.logger.Debug("Frame progress", "completed", i+1, "total", s.frames)
		}
	}
	s.logger.Info("Headless execution completed", "frames", s.frames, "cycles", gb.Cycles())
	return nil
}

func runTerminal(ctx context.Context, gb *gbcore.GameBoy, s runSettings) error {
	limiter := timing.NewNoOpLimiter()
	if s.speed > 0 {
		limiter = timing.NewAdaptiveLimiter(s.speed)
	}

	term, err := render.NewTerminal(gb, nil, limiter)
	if err != nil {
		return err
	}
	return term.Run(ctx, s.frames)
}

func loadSave(gb *gbcore.GameBoy, path string) error {
	ram, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := gb.LoadRAM(ram); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	slog.Info("Battery RAM loaded", "path", path, "bytes", len(ram))
	return nil
}
