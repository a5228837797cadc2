package cardio

import "github.com/crimson-sun/cardio/internal/engine/artifacts"

type options struct {
	modelDir    string
	backend     string
	onnxLibrary string
}

// Option configures a Cardio instance.
type Option func(*options)

// WithModelDir sets the directory containing the artifacts.
// Expects scaler.json plus model.json (linear) or model.onnx (onnx).
// Default: "models".
func WithModelDir(dir string) Option {
	return func(o *options) {
		o.modelDir = dir
	}
}

// WithBackend selects the classifier backend: "linear" or "onnx".
// Default: "linear".
func WithBackend(b string) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithONNXLibrary sets the path to the ONNX Runtime shared library.
// Only used by the onnx backend.
func WithONNXLibrary(path string) Option {
	return func(o *options) {
		o.onnxLibrary = path
	}
}

func defaultOptions() options {
	return options{
		modelDir: "models",
		backend:  artifacts.BackendLinear,
	}
}
