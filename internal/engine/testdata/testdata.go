// Package testdata ships a small fitted scaler/classifier pair and a labeled
// sample of raw records for tests across the module.
package testdata

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/crimson-sun/cardio/internal/model"
)

var (
	//go:embed scaler.json
	scalerJSON []byte

	//go:embed model.json
	modelJSON []byte

	//go:embed heart.csv
	heartCSV []byte
)

// Sample is the reference record used throughout the tests. The bundled
// model scores it 0.
var Sample = model.Record{
	Age: 63, Sex: 1, CP: 3, Trestbps: 145, Chol: 233, FBS: 1, RestECG: 0,
	Thalach: 150, Exang: 0, Oldpeak: 2.3, Slope: 3, CA: 0, Thal: 6,
}

// Positive is a record the bundled model scores 1.
var Positive = model.Record{
	Age: 35, Sex: 1, CP: 4, Trestbps: 183, Chol: 320, FBS: 1, RestECG: 1,
	Thalach: 172, Exang: 0, Oldpeak: 3.1, Slope: 2, CA: 2, Thal: 7,
}

// Expected confusion counts of the bundled model over HeartCSV.
const (
	TrueNegatives  = 10
	FalsePositives = 2
	FalseNegatives = 3
	TruePositives  = 25
)

// HeartCSV returns the labeled sample in raw-record CSV form with a
// "target" column.
func HeartCSV() []byte {
	return append([]byte(nil), heartCSV...)
}

// WriteArtifacts writes scaler.json and model.json into dir.
func WriteArtifacts(dir string) error {
	files := map[string][]byte{
		"scaler.json": scalerJSON,
		"model.json":  modelJSON,
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return fmt.Errorf("testdata: write %s: %w", name, err)
		}
	}
	return nil
}
