// rangerd drives a VL53L1X time-of-flight sensor in continuous ranging
// mode and publishes each measurement as a JSON document to NATS.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/swdee/go-i2c"

	vl53l1x "github.com/Pryadka/vl53l1"
	"github.com/Pryadka/vl53l1/internal/config"
)

// sample is the published measurement document
type sample struct {
	Sensor      string  `json:"sensor"`
	RangeMM     uint16  `json:"range_mm"`
	Status      string  `json:"status"`
	PeakMCPS    float32 `json:"peak_mcps"`
	AmbientMCPS float32 `json:"ambient_mcps"`
	TS          int64   `json:"ts"`
}

func main() {

	configPath := flag.String("config", "config/rangerd.yml", "path to configuration file")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config_path", *configPath).Msg("load config failed")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Log.Level).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("rangerd failed")
	}
}

func run(ctx context.Context, cfg *config.Config) error {

	nc, err := nats.Connect(cfg.NATS.URL, nats.Name("rangerd-"+cfg.Sensor.Name))
	if err != nil {
		return fmt.Errorf("connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer nc.Drain()

	addr := cfg.Sensor.Address
	if addr == 0 {
		addr = vl53l1x.Address
	}

	conn, err := i2c.New(addr, cfg.Sensor.Device)
	if err != nil {
		return fmt.Errorf("open I2C device %s: %w", cfg.Sensor.Device, err)
	}
	defer conn.Close()

	mode, err := vl53l1x.ParseDistanceMode(cfg.Sensor.DistanceMode)
	if err != nil {
		return err
	}

	sensor, err := vl53l1x.NewWithLog(conn, mode, cfg.Sensor.TimingBudgetUs, log.Logger)
	if err != nil {
		return err
	}

	sensor.SetTimeout(time.Duration(cfg.Sensor.TimeoutMs) * time.Millisecond)

	if err := sensor.Init(vl53l1x.Voltage2V8); err != nil {
		return fmt.Errorf("sensor init: %w", err)
	}

	if roi := cfg.Sensor.ROI; roi != nil {
		if err := sensor.SetROISize(roi.Width, roi.Height); err != nil {
			return fmt.Errorf("set ROI size: %w", err)
		}

		if roi.Center != 0 {
			if err := sensor.SetROICenter(roi.Center); err != nil {
				return fmt.Errorf("set ROI center: %w", err)
			}
		}
	}

	if err := sensor.StartContinuous(cfg.Sensor.PeriodMs); err != nil {
		return fmt.Errorf("start continuous: %w", err)
	}

	subject := fmt.Sprintf("%s.%s.sample", cfg.NATS.SubjectPrefix, cfg.Sensor.Name)

	log.Info().
		Str("sensor", cfg.Sensor.Name).
		Str("device", cfg.Sensor.Device).
		Str("mode", mode.String()).
		Uint32("budget_us", cfg.Sensor.TimingBudgetUs).
		Str("subject", subject).
		Msg("ranging started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			if err := sensor.StopContinuous(); err != nil {
				log.Error().Err(err).Msg("stop continuous failed")
			}
			return nil
		default:
		}

		data, err := sensor.Read(true)

		if err != nil {
			// a single missed measurement cycle is recoverable; continuous
			// ranging keeps running
			if errors.Is(err, vl53l1x.ErrTimeout) {
				sensor.TimeoutOccurred()
				log.Warn().Msg("measurement timed out, skipping sample")
				continue
			}
			log.Error().Err(err).Msg("read failed")
			continue
		}

		payload, err := json.Marshal(sample{
			Sensor:      cfg.Sensor.Name,
			RangeMM:     data.RangeMM,
			Status:      data.RangeStatus.String(),
			PeakMCPS:    data.PeakSignalCountRateMCPS,
			AmbientMCPS: data.AmbientCountRateMCPS,
			TS:          time.Now().Unix(),
		})
		if err != nil {
			log.Error().Err(err).Msg("marshal sample failed")
			continue
		}

		if err := nc.Publish(subject, payload); err != nil {
			log.Error().Err(err).Msg("publish failed")
			continue
		}

		log.Debug().
			Uint16("range_mm", data.RangeMM).
			Stringer("status", data.RangeStatus).
			Msg("sample published")
	}
}
