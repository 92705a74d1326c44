//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/vibematch/pkg/utils"
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

func initORT() error {
	ortInitOnce.Do(func() {
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// ONNXOptions configures ONNXEmbedder.
type ONNXOptions struct {
	ModelPath  string
	Dimensions int
	MaxTokens  int
	// OutputName is the model output to read, e.g. "last_hidden_state" or "sentence_embedding".
	OutputName string
	// MeanPool averages the [1, tokens, dims] output over the attention mask.
	// When false the output is read as a pooled [1, dims] vector.
	MeanPool bool
	// Tokenizer must match the model's vocabulary.
	Tokenizer Tokenizer
}

// ONNXEmbedder runs a sentence-embedding model with ONNX Runtime.
// It requires CGO and the onnxruntime shared library.
type ONNXEmbedder struct {
	session    *ort.AdvancedSession
	dimensions int
	maxTokens  int
	meanPool   bool
	tokenizer  Tokenizer
	// Tensors are allocated once; Embed overwrites the inputs and reads the output.
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

// NewONNXEmbedder loads the model at opts.ModelPath.
func NewONNXEmbedder(opts ONNXOptions) (*ONNXEmbedder, error) {
	if opts.Dimensions <= 0 || opts.MaxTokens <= 0 {
		return nil, fmt.Errorf("%w: local model needs positive dimensions and max_tokens", ErrUnsupportedStrategy)
	}
	if opts.Tokenizer == nil {
		return nil, fmt.Errorf("%w: local model needs a tokenizer", ErrUnsupportedStrategy)
	}
	if opts.OutputName == "" {
		opts.OutputName = "last_hidden_state"
	}
	if err := initORT(); err != nil {
		return nil, fmt.Errorf("%w: initialize ONNX runtime: %w", ErrUnsupportedStrategy, err)
	}

	e := &ONNXEmbedder{
		dimensions: opts.Dimensions,
		maxTokens:  opts.MaxTokens,
		meanPool:   opts.MeanPool,
		tokenizer:  opts.Tokenizer,
	}
	if err := e.allocate(opts); err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedStrategy, err)
	}
	return e, nil
}

func (e *ONNXEmbedder) allocate(opts ONNXOptions) error {
	inputIDs, attentionMask, tokenTypeIDs := e.tokenizer.Tokenize("", e.maxTokens)
	shape := ort.NewShape(1, int64(e.maxTokens))

	var err error
	if e.inputIDsTensor, err = ort.NewTensor(shape, inputIDs); err != nil {
		return fmt.Errorf("create input_ids tensor: %w", err)
	}
	if e.attentionMaskTensor, err = ort.NewTensor(shape, attentionMask); err != nil {
		return fmt.Errorf("create attention_mask tensor: %w", err)
	}
	if e.tokenTypeIDsTensor, err = ort.NewTensor(shape, tokenTypeIDs); err != nil {
		return fmt.Errorf("create token_type_ids tensor: %w", err)
	}

	outShape := ort.NewShape(1, int64(e.dimensions))
	outSize := e.dimensions
	if e.meanPool {
		outShape = ort.NewShape(1, int64(e.maxTokens), int64(e.dimensions))
		outSize = e.maxTokens * e.dimensions
	}
	if e.outputTensor, err = ort.NewTensor(outShape, make([]float32, outSize)); err != nil {
		return fmt.Errorf("create output tensor: %w", err)
	}

	e.session, err = ort.NewAdvancedSession(
		opts.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{opts.OutputName},
		[]ort.ArbitraryTensor{e.inputIDsTensor, e.attentionMaskTensor, e.tokenTypeIDsTensor},
		[]ort.ArbitraryTensor{e.outputTensor},
		nil,
	)
	if err != nil {
		return fmt.Errorf("create ONNX session for %s: %w", opts.ModelPath, err)
	}
	return nil
}

// Embed returns the L2-normalised embedding for text.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("embed", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	inputIDs, attentionMask, tokenTypeIDs := e.tokenizer.Tokenize(text, e.maxTokens)
	copy(e.inputIDsTensor.GetData(), inputIDs)
	copy(e.attentionMaskTensor.GetData(), attentionMask)
	copy(e.tokenTypeIDsTensor.GetData(), tokenTypeIDs)

	if err := e.session.Run(); err != nil {
		return nil, unavailable("inference", err)
	}

	out := e.outputTensor.GetData()
	embedding := make([]float32, e.dimensions)
	if e.meanPool {
		meanPool(embedding, out, attentionMask)
	} else {
		copy(embedding, out[:e.dimensions])
	}
	utils.NormalizeL2(embedding)
	return embedding, nil
}

// meanPool averages the token rows of hidden ([tokens x dims], row-major) where mask is 1.
func meanPool(dst, hidden []float32, mask []int64) {
	dims := len(dst)
	var n float32
	for t, m := range mask {
		if m == 0 {
			continue
		}
		row := hidden[t*dims : (t+1)*dims]
		for j, v := range row {
			dst[j] += v
		}
		n++
	}
	if n == 0 {
		return
	}
	for j := range dst {
		dst[j] /= n
	}
}

// EmbedBatch calls Embed for each text.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, e, texts)
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if e.inputIDsTensor != nil {
		_ = e.inputIDsTensor.Destroy()
		e.inputIDsTensor = nil
	}
	if e.attentionMaskTensor != nil {
		_ = e.attentionMaskTensor.Destroy()
		e.attentionMaskTensor = nil
	}
	if e.tokenTypeIDsTensor != nil {
		_ = e.tokenTypeIDsTensor.Destroy()
		e.tokenTypeIDsTensor = nil
	}
	if e.outputTensor != nil {
		_ = e.outputTensor.Destroy()
		e.outputTensor = nil
	}
	return err
}
