package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/itohio/goppg/pkg/config"
	"github.com/itohio/goppg/pkg/logger"
	"github.com/itohio/goppg/pkg/ppg"
	"github.com/itohio/goppg/pkg/sample"
	"github.com/itohio/goppg/pkg/source"
	"go.uber.org/zap"
)

func main() {
	var (
		portFlag     = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag   = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag     = flag.Bool("mock", false, "Use the synthetic waveform instead of a serial port")
		autoFlag     = flag.Bool("auto", false, "Start a session immediately instead of waiting for Enter")
		sessionsFlag = flag.Int("sessions", 0, "Exit after this many completed sessions (0 = run until interrupted)")
		listFlag     = flag.Bool("list", false, "List available serial ports and exit")
	)
	flag.Parse()

	if *listFlag {
		listPorts()
		return
	}

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override serial port if provided via command line
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *mockFlag {
		cfg.Source.Kind = config.SourceMock
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	src, err := openSource(cfg, zl)
	if err != nil {
		zl.Fatal("Failed to open source", zap.Error(err))
	}
	defer src.Close()

	if err := run(ctx, cfg, src, zl, *autoFlag, *sessionsFlag); err != nil {
		zl.Fatal("Acquisition failed", zap.Error(err))
	}
}

func listPorts() {
	ports, err := source.Ports()
	if err != nil {
		log.Fatalf("Failed to list ports: %v", err)
	}
	for _, p := range ports {
		fmt.Println(p.Name)
	}
}

func openSource(cfg *config.Config, zl *zap.Logger) (source.Source, error) {
	period := cfg.Acquisition.Period()

	switch cfg.Source.Kind {
	case config.SourceMock:
		return source.NewADC(source.NewWaveform(cfg.Mock, cfg.Acquisition), period, zl), nil
	default:
		return source.OpenSerial(cfg.Serial.Port, cfg.Serial.BaudRate, period, zl)
	}
}

// run wires the chain source -> session and drives sessions until ctx is
// done or the requested number of sessions has completed.
// A fatal source error aborts the session and is returned.
func run(ctx context.Context, cfg *config.Config, src source.Source, zl *zap.Logger, auto bool, sessions int) error {
	session, err := ppg.New(cfg, zl)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srcDone := make(chan struct{})
	go func() {
		defer close(srcDone)
		if err := src.Run(ctx, session); err != nil {
			session.Abort(err)
			cancel()
		}
	}()

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		if err := session.Run(ctx); err != nil {
			zl.Error("Processing stopped", zap.Error(err))
			cancel()
		}
	}()

	defer func() {
		cancel()
		<-srcDone
		<-runDone
	}()

	triggers := make(chan struct{})
	if !auto {
		go readTriggers(ctx, triggers)
	}

	for n := 0; sessions == 0 || n < sessions; n++ {
		if ctx.Err() != nil {
			return session.Err()
		}

		if !auto {
			fmt.Println("Press Enter to start a session")
			select {
			case <-ctx.Done():
				return session.Err()
			case <-triggers:
			}
		}

		if armer, ok := src.(source.Armer); ok {
			if err := armer.Arm(); err != nil {
				return fmt.Errorf("failed to arm source: %w", err)
			}
		}
		if err := session.Start(); err != nil {
			zl.Warn("Session not started", zap.Error(err))
			continue
		}

		if err := session.WaitUntilDone(ctx); err != nil {
			session.Stop()
			report(session.Snapshot(), cfg.ADC.VRef)
			return session.Err()
		}

		report(session.Snapshot(), cfg.ADC.VRef)
		if err := session.Err(); err != nil {
			return err
		}
	}

	return nil
}

// readTriggers turns every line on stdin into a start trigger.
func readTriggers(ctx context.Context, triggers chan<- struct{}) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case triggers <- struct{}{}:
		case <-ctx.Done():
			return
		}
	}
}

func report(snap ppg.Snapshot, vref float64) {
	fmt.Printf("Session %s: %d/%d samples\n", snap.ID, snap.SampleCount, snap.Target)
	fmt.Printf("  red: %4d (%.3f V)  ir: %4d (%.3f V)\n",
		snap.Red, sample.ToVoltage(snap.Red, vref),
		snap.Infrared, sample.ToVoltage(snap.Infrared, vref))
	if snap.Estimate != nil {
		fmt.Printf("  heart rate: %.1f bpm  SpO2: %.1f %%\n", snap.Estimate.HeartRateBPM, snap.Estimate.SpO2Percent)
	}
	if snap.Err != nil {
		fmt.Printf("  error: %v\n", snap.Err)
	}
	st := snap.Stats
	fmt.Printf("  pushed %d, overflows %d, processed %d, discarded %d, faults %d, flushed %d\n",
		st.Pushed, st.Overflows, st.Processed, st.Discarded, st.Faults, st.Flushed)
}
