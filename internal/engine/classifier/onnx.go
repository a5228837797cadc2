package classifier

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"gonum.org/v1/gonum/mat"
)

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// ONNX scores rows with an exported classifier through ONNX Runtime. The
// model must take one float tensor [batch, width] and produce an int64
// "label" tensor [batch].
type ONNX struct {
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
	width      int64
}

// LoadONNX creates an inference session for the model at modelPath. libPath
// points at the ONNX Runtime shared library; empty uses the runtime default.
func LoadONNX(modelPath, libPath string) (*ONNX, error) {
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("onnx: expected 1 input, model has %d", len(inputs))
	}
	dims := inputs[0].Dimensions
	if len(dims) != 2 || dims[1] <= 0 {
		return nil, fmt.Errorf("onnx: expected [batch, width] input, got %v", dims)
	}

	outputName, err := labelOutput(outputs)
	if err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(1)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{outputName},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	return &ONNX{
		session:    session,
		inputName:  inputs[0].Name,
		outputName: outputName,
		width:      dims[1],
	}, nil
}

// labelOutput picks the "label" output, falling back to the first one.
func labelOutput(outputs []ort.InputOutputInfo) (string, error) {
	if len(outputs) == 0 {
		return "", fmt.Errorf("onnx: model has no outputs")
	}
	for _, o := range outputs {
		if o.Name == "label" {
			return o.Name, nil
		}
	}
	return outputs[0].Name, nil
}

// Width returns the number of input columns.
func (o *ONNX) Width() int {
	return int(o.width)
}

// Predict returns one label per row of x.
func (o *ONNX) Predict(x *mat.Dense) ([]int, error) {
	rows, cols := x.Dims()
	if int64(cols) != o.width {
		return nil, fmt.Errorf("onnx: input has %d columns, model expects %d", cols, o.width)
	}

	data := make([]float32, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for _, v := range x.RawRowView(i) {
			data = append(data, float32(v))
		}
	}

	in, err := ort.NewTensor(ort.NewShape(int64(rows), o.width), data)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create input tensor: %w", err)
	}
	defer in.Destroy()

	out, err := ort.NewEmptyTensor[int64](ort.NewShape(int64(rows)))
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create output tensor: %w", err)
	}
	defer out.Destroy()

	if err := o.session.Run([]ort.Value{in}, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	raw := out.GetData()
	labels := make([]int, len(raw))
	for i, v := range raw {
		labels[i] = int(v)
	}
	return labels, nil
}

// Close releases the ONNX session.
func (o *ONNX) Close() error {
	return o.session.Destroy()
}
