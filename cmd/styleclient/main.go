// Command styleclient sends one image to a served style transfer model and
// writes the stylised result as PNG.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/ctxlog"
	"github.com/vk/trainkit/internal/serving"
)

// DefaultServerURL is the predict endpoint of a local model server.
const DefaultServerURL = "http://localhost:8501/v1/models/styletransfer:predict"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	if err := run(ctx, os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, outW io.Writer, args []string) error {
	flagSet := flag.NewFlagSet("styleclient", flag.ContinueOnError)
	flagSet.SetOutput(outW)
	imagePath := flagSet.String("image_path", "~/demo/data/mscoco_fns/val2014/COCO_val2014_000000301397.jpg", "Path of the image to stylise.")
	serverURL := flagSet.String("server_url", DefaultServerURL, "Predict endpoint of the model server.")
	output := flagSet.String("output", "stylised.png", "Where to write the stylised PNG.")
	timeout := flagSet.Duration("timeout", time.Minute, "Request timeout.")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	norm := config.DefaultNormalizer()
	in := norm.ExpandPath(*imagePath)
	out := norm.ExpandPath(*output)
	logger := ctxlog.FromContext(ctx)

	pixels, err := serving.ReadImage(in)
	if err != nil {
		return err
	}
	logger.Info("Image loaded.", "path", in, "height", len(pixels))

	client := serving.NewClient(*serverURL, *timeout)
	defer client.Close()
	preds, err := client.Predict(ctx, pixels)
	if err != nil {
		return err
	}

	img, err := serving.PredictionToImage(preds)
	if err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := serving.WritePNG(f, img); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Info("Stylised image written.", "path", out, "bounds", img.Bounds().String())
	return nil
}
