package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/atotto/clipboard"

	"vox/audio"
	"vox/encoder"
	"vox/log"
	"vox/transcriber"
)

var version = "0.3.0"

func main() {
	var (
		configPath  = flag.String("config", "", "config file (default ~/.config/vox/config.yaml)")
		apiKey      = flag.String("key", "", "speech API key (or GOOGLE_SPEECH_API_KEY)")
		language    = flag.String("lang", "", "recognition language code, e.g. pt-BR, en-US")
		format      = flag.String("format", "", "upload format: wav or flac")
		threshold   = flag.Float64("threshold", 0, "silence threshold, mean |sample| in [0,1]")
		silenceDur  = flag.Float64("silence", 0, "seconds of silence that stop a recording")
		minRec      = flag.Float64("minrec", 0, "seconds before silence detection arms")
		windowSize  = flag.Int("window", 0, "samples per silence evaluation")
		maxDur      = flag.Duration("max", 0, "hard recording limit (0 = unbounded)")
		deviceName  = flag.String("device", "", "capture device name substring")
		setup       = flag.Bool("setup", false, "pick the capture device interactively")
		copyFlag    = flag.Bool("copy", false, "copy transcripts to the clipboard")
		logPath     = flag.String("logpath", "", "log directory override")
		useTUI      = flag.Bool("tui", true, "full-screen UI; -tui=false records one take and prints it")
		testWav     = flag.String("test", "", "headless mode: replay a WAV file instead of the microphone")
		realtime    = flag.Bool("realtime", false, "pace the -test replay at capture speed")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("vox " + version)
		return
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fatal(err)
	}

	// Flags beat the config file, but only the ones actually given.
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["key"] {
		cfg.APIKey = *apiKey
	}
	if set["lang"] {
		cfg.Language = *language
	}
	if set["format"] {
		cfg.Format = *format
	}
	if set["threshold"] {
		cfg.SilenceThreshold = *threshold
	}
	if set["silence"] {
		cfg.SilenceDuration = *silenceDur
	}
	if set["minrec"] {
		cfg.MinRecordingDuration = *minRec
	}
	if set["window"] {
		cfg.WindowSize = *windowSize
	}
	if set["device"] {
		cfg.Device = *deviceName
	}
	if set["copy"] {
		cfg.CopyToClipboard = *copyFlag
	}
	if err := cfg.validate(); err != nil {
		fatal(err)
	}

	logDir, err := log.ResolveDir(*logPath)
	if err != nil {
		fatal(err)
	}
	log.SetDir(logDir)
	if err := log.Init(); err != nil {
		fatal(err)
	}
	defer log.Close()

	trans, err := transcriber.New(cfg.APIKey)
	if err != nil {
		fatal(err)
	}
	trans.SetLanguage(cfg.Language)
	log.SessionStart(trans.Name(), cfg.Format, cfg.Language)

	if *testWav != "" {
		if err := runTestMode(cfg, trans, *testWav, *maxDur, *realtime); err != nil {
			fatal(err)
		}
		return
	}

	ctx, err := audio.NewContext()
	if err != nil {
		fatal(err)
	}
	defer ctx.Close()

	device, err := resolveDevice(ctx, cfg.Device, *setup)
	if err != nil {
		fatal(err)
	}

	capture, err := ctx.NewCapture(device, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		fatal(err)
	}
	defer capture.Close()

	if *useTUI {
		err = runTUI(cfg, capture, trans, *maxDur)
	} else {
		err = runOnce(cfg, capture, trans, *maxDur)
	}
	if err != nil {
		fatal(err)
	}
}

// runOnce records a single silence-terminated take without the TUI and
// prints the transcript to stdout. Ctrl+C stops the take early.
func runOnce(cfg Config, capture audio.CaptureDevice, trans transcriber.Transcriber, maxDur time.Duration) error {
	sink := &cliSink{copy: copyToClipboard(cfg)}
	rec := NewRecorder(cfg, capture, trans, sink)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := rec.Start(true, maxDur); err != nil {
		return err
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for rec.State() == StateRecording {
		select {
		case <-sigCh:
			rec.Stop()
		case <-ticker.C:
			// ErrNoActiveSession ends the loop via the state check
			rec.Tick(100 * time.Millisecond)
		}
	}

	rec.Wait()
	log.SessionEnd(1)
	return sink.Err()
}

func runTUI(cfg Config, capture audio.CaptureDevice, trans transcriber.Transcriber, maxDur time.Duration) error {
	var rec *Recorder
	toggle := func() error {
		if rec.State() == StateRecording {
			return rec.Stop()
		}
		return rec.Start(true, maxDur)
	}

	p := NewTUIProgram(toggle)
	sink := &tuiSink{p: p, copy: copyToClipboard(cfg)}
	rec = NewRecorder(cfg, capture, trans, sink)

	go func() {
		p.Send(ModeLineMsg{Text: fmt.Sprintf("[%s | %s | %s]", cfg.Language, strings.ToUpper(cfg.Format), trans.Name())})
		p.Send(DeviceLineMsg{Text: "mic: " + capture.DeviceName()})
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				// ErrNoActiveSession just means we're idle between takes
				rec.Tick(100 * time.Millisecond)
			}
		}
	}()

	_, err := p.Run()

	close(done)
	ticker.Stop()
	if rec.State() == StateRecording {
		rec.Stop()
	}
	rec.Wait()
	log.SessionEnd(1)
	return err
}

// copyToClipboard returns the transcript copy hook, or a no-op when
// copying is disabled.
func copyToClipboard(cfg Config) func(string) bool {
	if !cfg.CopyToClipboard {
		return func(string) bool { return false }
	}
	return func(text string) bool {
		if err := clipboard.WriteAll(text); err != nil {
			log.Errorf("clipboard: %v", err)
			return false
		}
		return true
	}
}

// resolveDevice picks the capture source: interactive picker with
// -setup, substring match on a configured name, else system default.
func resolveDevice(ctx audio.Context, name string, setup bool) (*audio.DeviceInfo, error) {
	if setup {
		return audio.SelectDevice(ctx)
	}
	if name == "" {
		return nil, nil
	}
	devices, err := ctx.Devices()
	if err != nil {
		return nil, err
	}
	lower := strings.ToLower(name)
	for i := range devices {
		if strings.Contains(strings.ToLower(devices[i].Name), lower) {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("no capture device matching %q", name)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "vox:", err)
	os.Exit(1)
}
