package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/crimson-sun/mailsift/internal/config"
	"github.com/crimson-sun/mailsift/internal/engine"
	"github.com/crimson-sun/mailsift/internal/engine/filter"
	"github.com/crimson-sun/mailsift/internal/engine/header"
	"github.com/crimson-sun/mailsift/internal/engine/tagger"
	"github.com/crimson-sun/mailsift/internal/engine/tagger/onnx"
	"github.com/crimson-sun/mailsift/internal/engine/tagger/remote"
	"github.com/crimson-sun/mailsift/internal/engine/textnorm"
	"github.com/crimson-sun/mailsift/internal/output"
	"github.com/crimson-sun/mailsift/internal/output/csvfile"
	"github.com/crimson-sun/mailsift/internal/output/multi"
	"github.com/crimson-sun/mailsift/internal/output/sqlite"
	"github.com/crimson-sun/mailsift/internal/output/stdout"
	"github.com/crimson-sun/mailsift/internal/pipeline"
	"github.com/crimson-sun/mailsift/internal/source"

	// Register source implementations.
	_ "github.com/crimson-sun/mailsift/internal/source/csvsource"
	_ "github.com/crimson-sun/mailsift/internal/source/maildir"
)

func buildPipeline(cfg *config.Config, log *zap.SugaredLogger) (*pipeline.Pipeline, error) {
	ctor, err := source.Get(cfg.Source.Provider)
	if err != nil {
		return nil, err
	}

	eng := buildEngine(cfg.Parse)

	tg, err := buildTagger(cfg.Tagger, log)
	if err != nil {
		return nil, err
	}

	layout := output.Layout{
		Keys:     eng.Keys(),
		Mode:     output.ParseColumnMode(cfg.Output.Columns),
		Entities: tg != nil,
	}
	out, err := buildOutput(cfg.Output, layout, log)
	if err != nil {
		if tg != nil {
			tg.Close()
		}
		return nil, err
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithWorkers(cfg.Pipeline.Workers),
		pipeline.WithProgress(cfg.Pipeline.ProgressEvery, nil),
		pipeline.WithFilters(filter.Build(filter.Config{
			PathContains: cfg.Filter.PathContains,
			NonEmpty:     cfg.Filter.NonEmpty,
			GroupBy:      cfg.Filter.GroupBy,
			MinGroupSize: cfg.Filter.MinGroupSize,
		})),
	}
	if tg != nil {
		opts = append(opts, pipeline.WithTagger(tg), pipeline.WithTagField(cfg.Tagger.Field))
	}
	return pipeline.New(ctor(), eng, out, opts...), nil
}

func buildEngine(cfg config.ParseConfig) *engine.Engine {
	return engine.New(engine.Config{
		Header: header.Config{
			Strategy: header.ParseStrategy(cfg.Strategy),
			Sentinel: cfg.Sentinel,
			Fallback: header.ParseFallback(cfg.Fallback),
		},
		Fields:           cfg.Fields,
		HeaderMode:       engine.ParseHeaderMode(cfg.HeaderMode),
		BlankLines:       textnorm.ParseBlankLines(cfg.BlankLines),
		NormalizeHeaders: cfg.NormalizeHeaders,
		DecodeWords:      cfg.DecodeWords,
	})
}

// buildTagger returns nil when tagging is disabled.
func buildTagger(cfg config.TaggerConfig, log *zap.SugaredLogger) (tagger.Tagger, error) {
	switch cfg.Provider {
	case "onnx":
		t, err := onnx.New(cfg.ModelDir, onnxOptions(cfg)...)
		if err != nil {
			return nil, err
		}
		log.Infow("loaded tagger model", "dir", cfg.ModelDir)
		return t, nil
	case "remote":
		return remote.New(cfg.Endpoint, cfg.APIKey,
			remote.WithTimeout(cfg.Timeout),
			remote.WithRateLimit(cfg.RateLimit),
			remote.WithRetries(cfg.Retries, cfg.RetryInterval),
			remote.WithBreakerThreshold(uint32(cfg.BreakerThreshold)),
			remote.WithMinScore(cfg.MinScore),
			remote.WithLogger(log),
		), nil
	case "", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown tagger provider: %s", cfg.Provider)
	}
}

func onnxOptions(cfg config.TaggerConfig) []onnx.Option {
	opts := []onnx.Option{
		onnx.WithMinScore(cfg.MinScore),
		onnx.WithMaxSeqLen(cfg.MaxSeqLen),
		onnx.WithThreads(cfg.Threads),
	}
	if cfg.Cased {
		opts = append(opts, onnx.WithCased())
	}
	if cfg.LibraryPath != "" {
		opts = append(opts, onnx.WithLibraryPath(cfg.LibraryPath))
	}
	return opts
}

func csvOptions(cfg config.OutputConfig) []csvfile.Option {
	var opts []csvfile.Option
	if cfg.MaxSize > 0 {
		opts = append(opts, csvfile.WithMaxSize(cfg.MaxSize))
	}
	if cfg.Append {
		opts = append(opts, csvfile.WithAppend())
	}
	return opts
}

func buildOutput(cfg config.OutputConfig, layout output.Layout, log *zap.SugaredLogger) (output.Output, error) {
	var sinks []multi.Sink
	closeAll := func() {
		for _, s := range sinks {
			s.Output.Close()
		}
	}
	for _, format := range cfg.Format {
		switch format {
		case "stdout":
			sinks = append(sinks, multi.Sink{Name: format, Output: stdout.New(layout, cfg.Pretty)})
		case "csv":
			o, err := csvfile.New(cfg.Path, layout, csvOptions(cfg)...)
			if err != nil {
				closeAll()
				return nil, err
			}
			sinks = append(sinks, multi.Sink{Name: format, Output: o})
		case "sqlite":
			o, err := sqlite.New(cfg.DB, layout)
			if err != nil {
				closeAll()
				return nil, err
			}
			log.Infow("writing to sqlite", "db", cfg.DB, "run_id", o.RunID())
			sinks = append(sinks, multi.Sink{Name: format, Output: o})
		default:
			closeAll()
			return nil, fmt.Errorf("unknown output format: %s", format)
		}
	}
	if len(sinks) == 1 {
		return sinks[0].Output, nil
	}
	return multi.New(sinks...), nil
}

func sourceConfig(cfg *config.Config) source.Config {
	return source.Config{
		Provider:      cfg.Source.Provider,
		Path:          cfg.Source.Path,
		FileColumn:    cfg.Source.FileColumn,
		MessageColumn: cfg.Source.MessageColumn,
		Limit:         cfg.Source.Limit,
	}
}
