// Command mapping is the CLI entrypoint that wires the mapping back-end
// together: it loads configuration, constructs a Mapper and Worker, feeds
// them from a replay file, and persists the accumulated map on exit.
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/gc625-kodifly/livox-horizon-loam/colorize"
	"github.com/gc625-kodifly/livox-horizon-loam/config"
	"github.com/gc625-kodifly/livox-horizon-loam/logging"
	"github.com/gc625-kodifly/livox-horizon-loam/mapping"
	"github.com/gc625-kodifly/livox-horizon-loam/persist"
	"github.com/gc625-kodifly/livox-horizon-loam/spatialmath"
)

func main() {
	app := &cli.App{
		Name:  "mapping",
		Usage: "LiDAR odometry-refinement-and-mapping back-end",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a JSON file of mapping configuration attributes",
			},
			&cli.StringFlag{
				Name:  "frames",
				Usage: "path to a JSONL replay file of synchronized input tuples",
			},
			&cli.IntFlag{
				Name:  "queue-depth",
				Usage: "bound on each input queue",
				Value: 100,
			},
			&cli.BoolFlag{
				Name:  "dev",
				Usage: "use a console-friendly development logger instead of JSON production logging",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logger, err := newLogger(c.Bool("dev"))
	if err != nil {
		return errors.Wrap(err, "constructing logger")
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return errors.Wrap(err, "loading configuration")
	}

	mapper := mapping.NewMapper(cfg.LineResolution, cfg.PlaneResolution, logger.Named("mapper"))
	mapper.OdomExtrinsic = spatialmath.PoseFromFlatRotation(cfg.MappingExtrinsicR, cfg.MappingExtrinsicT)
	mapper.UseColor = cfg.UseColor
	if cfg.UseColor {
		mapper.Colorizer = buildColorizer(cfg)
	}

	aggregator := persist.NewAggregator(cfg.UseColor)
	worker := mapping.NewWorker(mapper, c.Int("queue-depth"), aggregator, nil, logger.Named("worker"))
	worker.IdleBackoff = time.Duration(cfg.ProcessInterval * float64(time.Second))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	framesPath := c.String("frames")
	if framesPath == "" {
		logger.Infow("no --frames replay file given, exiting after wiring")
		return persistOnExit(cfg, aggregator, logger)
	}

	frames, err := loadReplay(framesPath)
	if err != nil {
		return errors.Wrap(err, "loading replay frames")
	}

	err = mapping.RunWithIngress(ctx, worker, func(ingressCtx context.Context) error {
		return feedReplay(ingressCtx, worker, frames)
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, errReplayDone) {
		return err
	}

	return persistOnExit(cfg, aggregator, logger)
}

var errReplayDone = errors.New("replay exhausted")

func newLogger(dev bool) (*logging.Logger, error) {
	if dev {
		return logging.NewDevelopment()
	}
	return logging.New()
}

func loadConfig(path string) (config.MappingConfig, error) {
	am := config.AttributeMap{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return config.MappingConfig{}, err
		}
		if err := json.Unmarshal(raw, &am); err != nil {
			return config.MappingConfig{}, err
		}
	}
	return config.Load(am)
}

// unboundedPixels disables CameraIntrinsics' own width/height gate in
// Project: the real clipping against each matched frame's actual decoded
// bounds happens in Colorizer.Colors, and the configuration surface carries
// no separate image-dimension key.
const unboundedPixels = 1 << 30

func buildColorizer(cfg config.MappingConfig) *colorize.Colorizer {
	intr := colorize.CameraIntrinsics{Width: unboundedPixels, Height: unboundedPixels}
	if len(cfg.CameraMatrix) == 9 {
		intr.Fx, intr.Fy = cfg.CameraMatrix[0], cfg.CameraMatrix[4]
		intr.Cx, intr.Cy = cfg.CameraMatrix[2], cfg.CameraMatrix[5]
	}
	var bc colorize.BrownConrady
	if len(cfg.DistortionCoeff) == 5 {
		bc = colorize.BrownConrady{
			RadialK1:     cfg.DistortionCoeff[0],
			RadialK2:     cfg.DistortionCoeff[1],
			TangentialP1: cfg.DistortionCoeff[2],
			TangentialP2: cfg.DistortionCoeff[3],
			RadialK3:     cfg.DistortionCoeff[4],
		}
	}
	maxDiff := cfg.MaxTimeDiff
	if maxDiff <= 0 {
		maxDiff = config.DefaultMappingConfig.MaxTimeDiff
	}
	return &colorize.Colorizer{
		Intrinsics: intr,
		Distortion: &bc,
		Extrinsic:  colorize.ExtrinsicFromVectors(cfg.ColorExtrinsicR, cfg.ColorExtrinsicT),
		Buffer:     colorize.NewBuffer(maxDiff),
	}
}

func persistOnExit(cfg config.MappingConfig, aggregator *persist.Aggregator, logger *logging.Logger) error {
	if cfg.PCDSavePath == "" {
		return nil
	}
	if strings.HasSuffix(cfg.PCDSavePath, ".laz") {
		logger.Warnw("LAZ compression is not supported, writing uncompressed LAS", "path", cfg.PCDSavePath)
	}
	cloud, colors := aggregator.Snapshot()
	logger.Infow("persisting accumulated map", "path", cfg.PCDSavePath, "points", cloud.Size())
	return persist.WriteLAS(cloud, cfg.PCDSavePath, colors)
}
