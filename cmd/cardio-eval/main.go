// Command cardio-eval scores a labeled CSV sample with the deployed model
// artifacts and prints a classification report.
package main

import (
	"flag"
	"fmt"
	"os"

	"golang.org/x/text/language"

	"github.com/crimson-sun/cardio/internal/engine"
	"github.com/crimson-sun/cardio/internal/engine/artifacts"
	"github.com/crimson-sun/cardio/internal/engine/features"
	"github.com/crimson-sun/cardio/internal/evaluate"
	"github.com/crimson-sun/cardio/internal/logging"
)

func main() {
	data := flag.String("data", "data/heart.csv", "labeled CSV with a target column")
	models := flag.String("models", "models", "directory holding the scaler and classifier artifacts")
	backend := flag.String("backend", artifacts.BackendLinear, "classifier backend: linear or onnx")
	onnxLib := flag.String("onnx-lib", "", "path to the ONNX Runtime shared library")
	testSize := flag.Float64("test-size", evaluate.DefaultTestSize, "held-out fraction in (0, 1]")
	seed := flag.Uint64("seed", evaluate.DefaultSeed, "split seed (deterministic)")
	xlsx := flag.String("xlsx", "", "optional path for an XLSX copy of the report")
	lang := flag.String("lang", "en", "BCP 47 tag used to format numbers")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logging.Init("text", logging.ParseLevel(*logLevel))

	tag, err := language.Parse(*lang)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid -lang:", err)
		os.Exit(2)
	}

	schema := features.DefaultSchema()
	arts, err := artifacts.Load(*models, schema, artifacts.Options{Backend: *backend, ONNXLibrary: *onnxLib})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error loading artifacts:", err)
		os.Exit(1)
	}
	defer arts.Close()

	eng, err := engine.New(schema, arts.Scaler, arts.Classifier)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error building engine:", err)
		os.Exit(1)
	}

	ds, err := evaluate.LoadFile(*data, schema)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error reading data:", err)
		os.Exit(1)
	}

	rep, err := evaluate.Run(eng, ds, evaluate.Options{TestSize: *testSize, Seed: *seed})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error evaluating:", err)
		os.Exit(1)
	}

	if err := evaluate.WriteText(os.Stdout, rep, tag); err != nil {
		fmt.Fprintln(os.Stderr, "error writing report:", err)
		os.Exit(1)
	}
	if *xlsx != "" {
		if err := evaluate.WriteXLSX(*xlsx, rep); err != nil {
			fmt.Fprintln(os.Stderr, "error writing xlsx:", err)
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "wrote", *xlsx)
	}
}
