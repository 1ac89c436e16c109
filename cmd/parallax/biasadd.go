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

func biasAddCmd() *cli.Command {
	var (
		activationPath string
		biasPath       string
		outPath        string
	)

	return &cli.Command{
		Name:  "bias-add",
		Usage: "Add a per-depth bias across an activation volume",
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:        "activation",
				Aliases:     []string{"a"},
				Usage:       "activation volume (.ptf, rank-4 [N,D,H,W])",
				Required:    true,
				Destination: &activationPath,
			},
			&cli.StringFlag{
				Name:        "bias",
				Aliases:     []string{"b"},
				Usage:       "bias vector (.ptf, one scalar per depth slice)",
				Required:    true,
				Destination: &biasPath,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output volume (.ptf)",
				Required:    true,
				Destination: &outPath,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyConfig(cmd, loadConfig(), nil)
			ctx, err := withLogger(ctx)
			if err != nil {
				return err
			}
			log := logger.FromContext(ctx)

			af, err := ptf.Open(activationPath)
			if err != nil {
				return fmt.Errorf("activation: %w", err)
			}
			defer func() { _ = af.Close() }()
			if af.Shape.Rank != 4 {
				return fmt.Errorf("activation: want rank-4 volume, got %v", af.Shape)
			}
			conv, err := af.WidenedFloat32s()
			if err != nil {
				return err
			}

			bf, err := ptf.Open(biasPath)
			if err != nil {
				return fmt.Errorf("bias: %w", err)
			}
			defer func() { _ = bf.Close() }()
			bias, err := bf.WidenedFloat32s()
			if err != nil {
				return err
			}
			biasShape := tensor.Shape5(len(bias))

			p := &plugin.DepthBias{}
			outShape, err := p.OutputShape([]tensor.Shape{af.Shape, biasShape})
			if err != nil {
				return err
			}
			log.Info("adding depth bias", "volume", af.Shape.String(), "depths", len(bias))

			stream := newStream()
			defer stream.Destroy()

			dst := make([]float32, outShape.Elems())
			if err := p.Enqueue(stream, [][]float32{conv, bias}, dst, []tensor.Shape{af.Shape, biasShape}); err != nil {
				return err
			}
			if err := stream.Synchronize(); err != nil {
				return err
			}
			return ptf.WriteFloat32(outPath, outShape, dst)
		},
	}
}
