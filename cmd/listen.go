package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/0xlemi/guitartuner/internal/audio"
	"github.com/0xlemi/guitartuner/internal/config"
	"github.com/0xlemi/guitartuner/internal/feedback"
	"github.com/0xlemi/guitartuner/internal/notes"
	"github.com/0xlemi/guitartuner/internal/pitch"
	"github.com/0xlemi/guitartuner/internal/tuner"
	"github.com/0xlemi/guitartuner/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// How often the input level is logged at debug level
const levelLogInterval = 2 * time.Second

type listenFlags struct {
	tuning     string
	instrument string
	chromatic  bool
	auto       bool
	sampleRate int
	bufferSize int
	channels   int
	gain       float64
	threshold  float64
	sustain    time.Duration
	simulate   float64
	headless   bool
}

var listenOpts listenFlags

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Listen to the input device and tune",
	Args:  cobra.NoArgs,
	RunE:  runListen,
}

func addListenFlags(cmd *cobra.Command) {
	def := config.DefaultConfig()
	f := cmd.Flags()
	f.StringVarP(&listenOpts.tuning, "tuning", "t", def.Tuning, "Tuning name or note symbols, highest string first")
	f.StringVarP(&listenOpts.instrument, "instrument", "i", def.Instrument, "Instrument for symbol tunings (guitar, bass, ukulele, other)")
	f.BoolVarP(&listenOpts.chromatic, "chromatic", "c", def.Chromatic, "Start in chromatic mode")
	f.BoolVarP(&listenOpts.auto, "auto", "a", def.AutoDetect, "Select the target automatically from the detected pitch")
	f.IntVar(&listenOpts.sampleRate, "sample-rate", def.SampleRate, "Requested sample rate in Hz")
	f.IntVar(&listenOpts.bufferSize, "buffer-size", def.BufferSize, "Requested frames per buffer")
	f.IntVar(&listenOpts.channels, "channels", def.Channels, "Input channels to mix down")
	f.Float64Var(&listenOpts.gain, "gain", def.Gain, "Input amplification")
	f.Float64Var(&listenOpts.threshold, "threshold", def.Threshold, "Offset in semitones counted as in tune")
	f.DurationVar(&listenOpts.sustain, "sustain", def.Sustain, "How long a note must stay in tune to be marked tuned")
	f.Float64Var(&listenOpts.simulate, "simulate", 0, "Use a generated tone of this frequency instead of the microphone")
	f.BoolVar(&listenOpts.headless, "headless", false, "Log tuner state instead of showing the terminal UI")
}

// applyFlags overrides file settings with the flags given on the command line
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("tuning") {
		cfg.Tuning = listenOpts.tuning
	}
	if f.Changed("instrument") {
		cfg.Instrument = listenOpts.instrument
	}
	if f.Changed("chromatic") {
		cfg.Chromatic = listenOpts.chromatic
	}
	if f.Changed("auto") {
		cfg.AutoDetect = listenOpts.auto
	}
	if f.Changed("sample-rate") {
		cfg.SampleRate = listenOpts.sampleRate
	}
	if f.Changed("buffer-size") {
		cfg.BufferSize = listenOpts.bufferSize
	}
	if f.Changed("channels") {
		cfg.Channels = listenOpts.channels
	}
	if f.Changed("gain") {
		cfg.Gain = listenOpts.gain
	}
	if f.Changed("threshold") {
		cfg.Threshold = listenOpts.threshold
	}
	if f.Changed("sustain") {
		cfg.Sustain = listenOpts.sustain
	}
	return cfg.Validate()
}

func runListen(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, &cfg); err != nil {
		return err
	}

	level, _ := cfg.Level()
	out, closeLog, err := logOutput(!listenOpts.headless)
	if err != nil {
		return err
	}
	defer closeLog()
	initLogger(level, out)

	t, _ := cfg.ResolveTuning()
	logger.Info("guitartuner starting",
		"version", version,
		"tuning", t.Label(),
		"sample_rate", cfg.SampleRate,
		"buffer_size", cfg.BufferSize,
		"simulate", listenOpts.simulate,
	)

	opener, release, err := newOpener(cfg)
	if err != nil {
		return err
	}
	defer release()

	engine := tuner.New(tuner.Config{
		Tuning:     t,
		SampleRate: cfg.SampleRate,
		BufferSize: cfg.BufferSize,
		AutoDetect: cfg.AutoDetect,
		Opener:     opener,
		NewDetector: func(sampleRate int) pitch.Detector {
			return withLevelLog(pitch.NewACFDetector(sampleRate))
		},
		Logger: logger,
	})
	engine.SetChromatic(cfg.Chromatic)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("starting tuner: %w", err)
	}

	states, unsubscribe := engine.Subscribe()
	defer unsubscribe()

	sustain := &tuner.Sustain{Threshold: cfg.Threshold, Hold: cfg.Sustain}
	planner := feedback.NewPlanner()
	sendFeedback := func(req feedback.Request) {
		logger.Info("feedback", "request", req.String(), "midi", fmt.Sprint(req.Messages(cfg.MIDIChannel)))
	}

	g, ctx := errgroup.WithContext(ctx)

	if listenOpts.headless {
		g.Go(func() error {
			defer stop()
			return watchStates(ctx, engine, states, sustain, planner, sendFeedback)
		})
	} else {
		model := ui.NewModel(engine, states, ui.Options{
			Sustain:  sustain,
			Planner:  planner,
			Feedback: sendFeedback,
			Logger:   logger,
		})
		g.Go(func() error {
			defer stop()
			_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		return engine.Stop()
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if err := engine.State().Err; err != nil {
		return err
	}
	logger.Info("guitartuner stopped")
	return nil
}

// newOpener returns the microphone, or a tone generator when simulating
func newOpener(cfg config.Config) (audio.Opener, func(), error) {
	if listenOpts.simulate > 0 {
		return audio.ToneOpener(listenOpts.simulate, 0.5, true), func() {}, nil
	}

	pa, err := audio.NewPortAudio(cfg.Channels, float32(cfg.Gain))
	if err != nil {
		return nil, nil, fmt.Errorf("initializing audio: %w", err)
	}
	return pa, func() {
		if err := pa.Terminate(); err != nil {
			logger.Warn("terminating audio", "error", err)
		}
	}, nil
}

// watchStates logs the tuner state without a UI. It drives the sustain
// timer and feedback planner the same way the terminal UI does.
func watchStates(ctx context.Context, engine *tuner.Engine, states <-chan tuner.State,
	sustain *tuner.Sustain, planner *feedback.Planner, sendFeedback func(feedback.Request)) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var s tuner.State
	target := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case next, ok := <-states:
			if !ok {
				return nil
			}
			s = next
			if s.Target() != target {
				target = s.Target()
				sustain.Reset()
			}
			if req, ok := planner.Observe(s); ok {
				sendFeedback(req)
			}
			if s.HasOffset {
				logger.Debug("pitch", "target", notes.Name(target), "cents", fmt.Sprintf("%+.1f", s.Offset*100))
			}
			if !s.Running {
				return nil
			}
		case now := <-ticker.C:
			if !s.IsTuned() && sustain.Update(s, now) && engine.MarkTuned(s) {
				logger.Info("target tuned", "note", notes.Name(target))
			}
		}
	}
}

// withLevelLog wraps a detector to log the input level now and then
func withLevelLog(d pitch.Detector) pitch.Detector {
	var last time.Time
	return pitch.DetectorFunc(func(buffer *audio.Buffer) pitch.Result {
		if time.Since(last) > levelLogInterval {
			last = time.Now()
			rms, db := pitch.Level(buffer)
			logger.Debug("input level", "rms", fmt.Sprintf("%.4f", rms), "db", fmt.Sprintf("%.1f", db))
		}
		return d.Detect(buffer)
	})
}
