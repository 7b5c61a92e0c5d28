// Package onnx runs image classification through an ONNX Runtime session.
package onnx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"sync"

	"github.com/nfnt/resize"
	ort "github.com/yalue/onnxruntime_go"

	"imagegate/internal/classify"
)

// Metadata describes the model's tensor shapes and output classes.
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
}

// Classifier wraps an ONNX session. The session's tensors are
// preallocated, so Classify serializes access with a mutex.
type Classifier struct {
	mu               sync.Mutex
	session          *ort.AdvancedSession
	metadata         Metadata
	inputTensor      *ort.Tensor[float32]
	outputTensor     *ort.Tensor[float32]
	anomalyThreshold float64
}

// New loads the model and its metadata. A top-class probability below
// anomalyThreshold is reported as classify.ErrAnomalous.
func New(modelPath, metadataPath string, anomalyThreshold float64) (*Classifier, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("initialize onnx environment: %w", err)
	}

	metaRaw, err := os.ReadFile(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("read model metadata: %w", err)
	}
	var metadata Metadata
	if err := json.Unmarshal(metaRaw, &metadata); err != nil {
		return nil, fmt.Errorf("parse model metadata: %w", err)
	}
	if len(metadata.Classes) == 0 {
		return nil, fmt.Errorf("model metadata lists no classes")
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"}, []string{"output"},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &Classifier{
		session:          session,
		metadata:         metadata,
		inputTensor:      inputTensor,
		outputTensor:     outputTensor,
		anomalyThreshold: anomalyThreshold,
	}, nil
}

// Classify decodes, preprocesses and runs the image through the model.
func (c *Classifier) Classify(ctx context.Context, imageBytes []byte) (classify.Result, error) {
	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return classify.Result{}, fmt.Errorf("decode image: %w", err)
	}

	inputData := Preprocess(img, uint(c.metadata.ImageSize))

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return classify.Result{}, fmt.Errorf("classification canceled: %w", err)
	}

	copy(c.inputTensor.GetData(), inputData)
	if err := c.session.Run(); err != nil {
		return classify.Result{}, fmt.Errorf("inference failed: %w", err)
	}

	probs := Softmax(c.outputTensor.GetData())
	maxIdx := 0
	for i, p := range probs {
		if i < len(c.metadata.Classes) && p > probs[maxIdx] {
			maxIdx = i
		}
	}

	top := float64(probs[maxIdx])
	if top < c.anomalyThreshold {
		return classify.Result{}, classify.ErrAnomalous
	}
	return classify.Result{Label: c.metadata.Classes[maxIdx], Probability: top}, nil
}

// Close releases the session and its tensors.
func (c *Classifier) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inputTensor != nil {
		c.inputTensor.Destroy()
	}
	if c.outputTensor != nil {
		c.outputTensor.Destroy()
	}
	if c.session != nil {
		c.session.Destroy()
	}
	ort.DestroyEnvironment() //nolint:errcheck // best-effort teardown
}

// Preprocess resizes img to size×size and returns normalized CHW float32
// pixel data in [0,1].
func Preprocess(img image.Image, size uint) []float32 {
	resized := resize.Resize(size, size, img, resize.Lanczos3)
	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	data := make([]float32, 3*width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			idx := y*width + x
			data[idx] = float32(r) / 65535.0
			data[width*height+idx] = float32(g) / 65535.0
			data[2*width*height+idx] = float32(b) / 65535.0
		}
	}
	return data
}

// Softmax converts logits to a probability distribution.
func Softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	maxLogit := logits[0]
	for _, v := range logits[1:] {
		if v > maxLogit {
			maxLogit = v
		}
	}
	out := make([]float32, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - maxLogit))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}
