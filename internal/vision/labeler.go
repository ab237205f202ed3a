// Package vision labels images with an ImageNet classifier so pictures without
// readable text still produce searchable content.
package vision

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sort"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var ErrModelMissing = errors.New("vision model not available")

var (
	imagenetMean = [3]float32{0.485, 0.456, 0.406}
	imagenetStd  = [3]float32{0.229, 0.224, 0.225}
)

const (
	width  = 224
	height = 224
)

type LabelScore struct {
	Label string  `json:"label"`
	Index int     `json:"index"`
	Score float32 `json:"score"`
}

// Labeler runs a MobileNetV2 ONNX model. The runtime and model are loaded on
// first use.
type Labeler struct {
	mu sync.Mutex

	modelPath  string
	labelsPath string
	libPath    string
	topK       int

	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	labels  []string
	initErr error
	inited  bool
}

func NewLabeler(modelPath, labelsPath, onnxLibPath string, topK int) *Labeler {
	if topK <= 0 {
		topK = 3
	}
	return &Labeler{
		modelPath:  modelPath,
		labelsPath: labelsPath,
		libPath:    onnxLibPath,
		topK:       topK,
	}
}

// Available reports whether the model and label files exist.
func (l *Labeler) Available() bool {
	for _, p := range []string{l.modelPath, l.labelsPath} {
		if p == "" {
			return false
		}
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// Describe returns the top labels, most likely first. Synonyms after the
// first comma of an ImageNet label are dropped.
func (l *Labeler) Describe(data []byte) ([]string, error) {
	scores, err := l.Classify(data)
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(scores))
	for _, s := range scores {
		name, _, _ := strings.Cut(s.Label, ",")
		if name = strings.TrimSpace(name); name != "" {
			labels = append(labels, name)
		}
	}
	return labels, nil
}

func (l *Labeler) Classify(data []byte) ([]LabelScore, error) {
	if !l.Available() {
		return nil, ErrModelMissing
	}
	if err := l.init(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image failed: %w", err)
	}
	tensor := Preprocess(img)

	l.mu.Lock()
	inData := l.input.GetData()
	if len(inData) < len(tensor) {
		l.mu.Unlock()
		return nil, fmt.Errorf("input tensor size %d < preprocessed %d", len(inData), len(tensor))
	}
	copy(inData, tensor)
	err = l.session.Run()
	outData := append([]float32(nil), l.output.GetData()...)
	l.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("onnx run failed: %w", err)
	}

	return topLabels(outData, l.labels, l.topK), nil
}

func (l *Labeler) init() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inited {
		return l.initErr
	}
	l.inited = true
	l.initErr = l.load()
	return l.initErr
}

func (l *Labeler) load() error {
	if l.libPath != "" {
		ort.SetSharedLibraryPath(l.libPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("onnx init environment failed: %w", err)
		}
	}

	labels, err := loadLabels(l.labelsPath)
	if err != nil {
		return fmt.Errorf("load labels failed: %w", err)
	}
	l.labels = labels

	inputs, outputs, err := ort.GetInputOutputInfo(l.modelPath)
	if err != nil {
		return fmt.Errorf("onnx get input/output info failed: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return fmt.Errorf("onnx model has no inputs or outputs")
	}

	input, err := ort.NewEmptyTensor[float32](inputs[0].Dimensions)
	if err != nil {
		return fmt.Errorf("onnx new input tensor failed: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](outputs[0].Dimensions)
	if err != nil {
		input.Destroy()
		return fmt.Errorf("onnx new output tensor failed: %w", err)
	}

	session, err := ort.NewAdvancedSession(l.modelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name},
		[]ort.Value{input}, []ort.Value{output}, nil)
	if err != nil {
		output.Destroy()
		input.Destroy()
		return fmt.Errorf("onnx new session failed: %w", err)
	}
	l.input, l.output, l.session = input, output, session
	return nil
}

// Close releases the ONNX session and tensors.
func (l *Labeler) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session != nil {
		l.session.Destroy()
		l.session = nil
	}
	if l.input != nil {
		l.input.Destroy()
		l.input = nil
	}
	if l.output != nil {
		l.output.Destroy()
		l.output = nil
	}
}

func loadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var labels []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		labels = append(labels, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return labels, nil
}

func topLabels(scores []float32, labels []string, k int) []LabelScore {
	k = min(k, len(scores), len(labels))
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })

	out := make([]LabelScore, 0, k)
	for _, i := range idx[:k] {
		out = append(out, LabelScore{Label: labels[i], Index: i, Score: scores[i]})
	}
	return out
}

// Preprocess scales img to 224x224 and returns an NCHW float32 tensor with
// ImageNet normalization.
func Preprocess(img image.Image) []float32 {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	const size = width * height
	out := make([]float32, 3*size)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			c := dst.RGBAAt(x, y)
			r, g, b := float32(c.R)/255.0, float32(c.G)/255.0, float32(c.B)/255.0
			out[idx] = (r - imagenetMean[0]) / imagenetStd[0]
			out[size+idx] = (g - imagenetMean[1]) / imagenetStd[1]
			out[2*size+idx] = (b - imagenetMean[2]) / imagenetStd[2]
		}
	}
	return out
}
