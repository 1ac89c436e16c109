package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/parallaxml/parallax/internal/logger"
	"github.com/parallaxml/parallax/internal/plugin"
	"github.com/parallaxml/parallax/internal/tensor"
	"github.com/parallaxml/parallax/pkg/ptf"
)

func costVolumeCmd() *cli.Command {
	var (
		leftPath     string
		rightPath    string
		outPath      string
		maxDisparity int64
	)

	return &cli.Command{
		Name:  "cost-volume",
		Usage: "Build the matching cost volume from a stereo feature-map pair",
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:        "left",
				Usage:       "left feature map (.ptf, rank-3 [C,H,W])",
				Required:    true,
				Destination: &leftPath,
			},
			&cli.StringFlag{
				Name:        "right",
				Usage:       "right feature map (.ptf, rank-3 [C,H,W])",
				Required:    true,
				Destination: &rightPath,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output volume (.ptf, rank-4 [D,2C,H,W])",
				Required:    true,
				Destination: &outPath,
			},
			&cli.Int64Flag{
				Name:        "max-disparity",
				Aliases:     []string{"d"},
				Usage:       "number of candidate disparity levels",
				Value:       64,
				Destination: &maxDisparity,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyConfig(cmd, loadConfig(), nil)
			ctx, err := withLogger(ctx)
			if err != nil {
				return err
			}
			log := logger.FromContext(ctx)

			left, leftShape, err := loadFeatureMap(leftPath)
			if err != nil {
				return fmt.Errorf("left: %w", err)
			}
			right, rightShape, err := loadFeatureMap(rightPath)
			if err != nil {
				return fmt.Errorf("right: %w", err)
			}

			p := &plugin.CostVolume{MaxDisparity: int(maxDisparity)}
			outShape, err := p.OutputShape([]tensor.Shape{leftShape, rightShape})
			if err != nil {
				return err
			}
			log.Info("building cost volume",
				"input", leftShape.String(), "output", outShape.String())

			stream := newStream()
			defer stream.Destroy()

			dst := make([]float32, outShape.Elems())
			if err := p.Enqueue(stream, [][]float32{left, right}, dst, []tensor.Shape{leftShape, rightShape}); err != nil {
				return err
			}
			if err := stream.Synchronize(); err != nil {
				return err
			}
			return ptf.WriteFloat32(outPath, outShape, dst)
		},
	}
}

func loadFeatureMap(path string) ([]float32, tensor.Shape, error) {
	f, err := ptf.Open(path)
	if err != nil {
		return nil, tensor.Shape{}, err
	}
	defer func() { _ = f.Close() }()

	if f.Shape.Rank != 3 {
		return nil, tensor.Shape{}, fmt.Errorf("%s: want rank-3 feature map, got %v", path, f.Shape)
	}
	data, err := f.WidenedFloat32s()
	if err != nil {
		return nil, tensor.Shape{}, err
	}
	return data, f.Shape, nil
}
