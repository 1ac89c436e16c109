package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/parallaxml/parallax/internal/kernels"
	"github.com/parallaxml/parallax/internal/logger"
	"github.com/parallaxml/parallax/pkg/ptf"
)

func convertCmd() *cli.Command {
	var (
		inPath  string
		outPath string
	)

	return &cli.Command{
		Name:  "convert",
		Usage: "Convert a tensor file between float32 and float16",
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:        "in",
				Aliases:     []string{"i"},
				Usage:       "input tensor (.ptf)",
				Required:    true,
				Destination: &inPath,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output tensor (.ptf), opposite precision of the input",
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

			f, err := ptf.Open(inPath)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			stream := newStream()
			defer stream.Destroy()

			switch f.DType {
			case ptf.DTypeF32:
				src, err := f.Float32s()
				if err != nil {
					return err
				}
				dst := make([]uint16, len(src))
				if err := kernels.ConvertFloatToHalf(stream, src, dst); err != nil {
					return err
				}
				if err := stream.Synchronize(); err != nil {
					return err
				}
				log.Info("narrowed to half", "shape", f.Shape.String(), "elements", len(src))
				return ptf.WriteHalf(outPath, f.Shape, dst)
			case ptf.DTypeF16:
				src, err := f.Halves()
				if err != nil {
					return err
				}
				dst := make([]float32, len(src))
				if err := kernels.ConvertHalfToFloat(stream, src, dst); err != nil {
					return err
				}
				if err := stream.Synchronize(); err != nil {
					return err
				}
				log.Info("widened to float", "shape", f.Shape.String(), "elements", len(src))
				return ptf.WriteFloat32(outPath, f.Shape, dst)
			default:
				return fmt.Errorf("%s: unsupported dtype %d", inPath, f.DType)
			}
		},
	}
}
