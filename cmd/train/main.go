// Command train fits the price model from a listings CSV and writes the
// artifact read by the tasador server.
//
//	train -input listings.csv -output modelo_svm.gob -test-ratio 0.2 -plot holdout.png
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ezoic/tasador/config"
	"github.com/ezoic/tasador/pkg/log"
	"github.com/ezoic/tasador/trainer"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "train:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional YAML config file")
	input := fs.String("input", "", "listings CSV (';' separated)")
	output := fs.String("output", "", "artifact path")
	report := fs.String("report", "", "optional JSON report path")
	plot := fs.String("plot", "", "optional hold-out plot (png, svg or pdf)")
	top := fs.Int("top-models", 0, "number of models kept before folding to Other")
	refYear := fs.Int("reference-year", 0, "year used to compute vehicle age")
	testRatio := fs.Float64("test-ratio", 0, "hold-out fraction for evaluation, 0 disables it")
	seed := fs.Uint64("seed", 0, "hold-out split seed")
	baseline := fs.Float64("baseline-alpha", 0, "ridge baseline penalty on the hold-out, 0 disables it")
	scaler := fs.String("scaler", "", "numeric scaler: robust, standard or minmax")
	c := fs.Float64("c", 0, "SVR regularization C")
	epsilon := fs.Float64("epsilon", 0, "SVR epsilon tube")
	gamma := fs.String("gamma", "", "RBF gamma: scale, auto or a number")
	maxIter := fs.Int("max-iter", 0, "solver iteration cap, -1 for the default")
	level := fs.String("log-level", "", "log level")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	o := cfg.Train.TrainerOptions()
	logOpts := cfg.Log.LogOptions()

	// explicit flags win over the config
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			o.Input = *input
		case "output":
			o.Output = *output
		case "report":
			o.Report = *report
		case "plot":
			o.Plot = *plot
		case "top-models":
			o.TopModels = *top
		case "reference-year":
			o.ReferenceYear = *refYear
		case "test-ratio":
			o.TestRatio = *testRatio
		case "seed":
			o.Seed = *seed
		case "baseline-alpha":
			o.BaselineAlpha = *baseline
		case "scaler":
			o.Scaler = *scaler
		case "c":
			o.C = *c
		case "epsilon":
			o.Epsilon = *epsilon
		case "gamma":
			o.Gamma = *gamma
		case "max-iter":
			o.MaxIter = *maxIter
		case "log-level":
			logOpts.Level = *level
		}
	})
	log.Setup(logOpts)
	logger := log.GetLoggerWithName("train")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	res, err := trainer.Train(ctx, o)
	if err != nil {
		return err
	}
	s := res.Artifact.Summary
	logger.Info("Artifact written",
		log.PathKey, o.Output,
		"id", s.ID,
		log.SamplesKey, s.Rows.Kept,
		"support_vectors", s.SupportVectors,
	)
	if s.Holdout != nil {
		fmt.Printf("hold-out: R2=%.4f MAE=%.0f RMSE=%.0f MAPE=%.2f%%\n",
			s.Holdout.R2, s.Holdout.MAE, s.Holdout.RMSE, s.Holdout.MAPE)
	}
	return nil
}
