package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/opentracing/opentracing-go"
	"github.com/urfave/cli/v2"

	"github.com/customeros/mailcodec/config"
	"github.com/customeros/mailcodec/interfaces"
	"github.com/customeros/mailcodec/internal/logger"
	"github.com/customeros/mailcodec/internal/tracing"
	"github.com/customeros/mailcodec/services/codec"
	"github.com/customeros/mailcodec/services/geo"
)

func main() {
	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Config initialization failed: %v", err)
	}

	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()

	if cfg.Tracing.Enabled {
		tracer, closer, tracerErr := tracing.NewJaegerTracer(cfg.Tracing, appLogger)
		if tracerErr != nil {
			appLogger.Fatalf("Tracer setup failed: %v", tracerErr)
		}
		defer closer.Close()
		opentracing.SetGlobalTracer(tracer)
	}

	var geoDecoder interfaces.GeoJSONDecoder
	if cfg.CodecConfig.GeoJSONEnabled {
		geoDecoder = geo.NewDecoder()
	}
	messageCodec := codec.NewCodecService(appLogger, geoDecoder)
	itemCodec := codec.NewDefaultCodec(cfg.CodecConfig)

	app := &cli.App{
		Name:  "mailcodec",
		Usage: "encode items as MIME e-mail and decode replies into records",
		Commands: []*cli.Command{
			{
				Name:      "encode",
				Usage:     "build a MIME message for an item and write it to stdout",
				ArgsUsage: "<item>",
				Action: func(c *cli.Context) error {
					span, ctx := tracing.StartTracerSpan(context.Background(), "mailcodec.encode")
					defer span.Finish()
					tracing.SetDefaultCliSpanTags(ctx, span)

					item, itemErr := readItem(c)
					if itemErr != nil {
						return itemErr
					}
					raw, buildErr := messageCodec.BuildMessage(ctx, item, itemCodec)
					if buildErr != nil {
						return buildErr
					}
					_, writeErr := os.Stdout.Write(raw)
					return writeErr
				},
			},
			{
				Name:  "decode",
				Usage: "parse a MIME message from stdin and write the record as JSON",
				Action: func(c *cli.Context) error {
					span, ctx := tracing.StartTracerSpan(context.Background(), "mailcodec.decode")
					defer span.Finish()
					tracing.SetDefaultCliSpanTags(ctx, span)

					raw, readErr := io.ReadAll(os.Stdin)
					if readErr != nil {
						return readErr
					}
					record, parseErr := messageCodec.ParseMessage(ctx, raw, itemCodec)
					if parseErr != nil {
						return parseErr
					}
					tracing.LogObjectAsJson(span, "record", record)
					encoded, marshalErr := json.MarshalIndent(record, "", "  ")
					if marshalErr != nil {
						return marshalErr
					}
					fmt.Println(string(encoded))
					return nil
				},
			},
		},
	}

	if err = app.Run(os.Args); err != nil {
		appLogger.Fatalf("mailcodec failed: %v", err)
	}
}

// readItem takes the item from the first argument, or stdin when absent. A
// JSON object argument becomes a string mapping context; anything else is
// treated as the item's string form.
func readItem(c *cli.Context) (interface{}, error) {
	text := c.Args().First()
	if text == "" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, err
		}
		text = string(raw)
	}

	var mapping map[string]string
	if err := json.Unmarshal([]byte(text), &mapping); err == nil {
		return mapping, nil
	}
	return text, nil
}
