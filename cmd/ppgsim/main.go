package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/itohio/goppg/pkg/config"
	"github.com/itohio/goppg/pkg/logger"
	"github.com/itohio/goppg/pkg/sim"
	"github.com/itohio/goppg/pkg/source"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM8 or /dev/ttyUSB1)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()

	port, err := serial.Open(cfg.Serial.Port, &serial.Mode{
		BaudRate: cfg.Serial.BaudRate,
	})
	if err != nil {
		zl.Fatal("Failed to open serial port", zap.String("port", cfg.Serial.Port), zap.Error(err))
	}
	zl.Info("Serial opened", zap.String("port", cfg.Serial.Port), zap.Int("baudRate", cfg.Serial.BaudRate))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	responder := sim.NewResponder(port, source.NewWaveform(cfg.Mock, cfg.Acquisition), cfg, zl)
	if err := responder.Serve(ctx); err != nil {
		zl.Error("Simulator stopped", zap.Error(err))
	}
	port.Close()

	zl.Info("Simulator finished",
		zap.Uint64("sent", responder.Sent()),
		zap.Uint64("completed", responder.Completed()))
}
