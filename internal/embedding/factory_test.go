package embedding

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hyperjump/vibematch/internal/config"
)

func TestNew_Hash(t *testing.T) {
	e, err := New(config.EmbeddingConfig{Strategy: "hash", Hash: config.HashConfig{Dimensions: 32}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	if _, ok := e.(*HashEmbedder); !ok {
		t.Errorf("got %T, want *HashEmbedder", e)
	}
	if e.Dimensions() != 32 {
		t.Errorf("Dimensions() = %d", e.Dimensions())
	}
}

func TestNew_Cached(t *testing.T) {
	e, err := New(config.EmbeddingConfig{Strategy: "hash", CacheSize: 8}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*CachedEmbedder); !ok {
		t.Errorf("got %T, want *CachedEmbedder", e)
	}
}

func TestNew_Unknown(t *testing.T) {
	_, err := New(config.EmbeddingConfig{Strategy: "word2vec"}, nil)
	if !errors.Is(err, ErrUnsupportedStrategy) {
		t.Errorf("expected ErrUnsupportedStrategy, got %v", err)
	}
}

func TestNew_RemoteWithoutKeyNoFallback(t *testing.T) {
	_, err := New(config.EmbeddingConfig{Strategy: "remote"}, nil)
	if !errors.Is(err, ErrUnsupportedStrategy) {
		t.Errorf("expected ErrUnsupportedStrategy, got %v", err)
	}
}

func TestNew_ExplicitFallbackIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	e, err := New(config.EmbeddingConfig{Strategy: "remote", Fallback: "hash"}, zap.New(core))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*HashEmbedder); !ok {
		t.Errorf("got %T, want *HashEmbedder", e)
	}
	entries := logs.FilterMessageSnippet("fallback").All()
	if len(entries) != 1 {
		t.Fatalf("expected one fallback warning, got %d", len(entries))
	}
	if entries[0].ContextMap()["fallback"] != "hash" {
		t.Errorf("warning fields: %v", entries[0].ContextMap())
	}
}

func TestNew_LocalMissingModel(t *testing.T) {
	_, err := New(config.EmbeddingConfig{
		Strategy: "local",
		Local:    config.LocalModelConfig{ModelPath: "/nonexistent/model.onnx", Dimensions: 384, MaxTokens: 16},
	}, nil)
	if !errors.Is(err, ErrUnsupportedStrategy) {
		t.Errorf("expected ErrUnsupportedStrategy, got %v", err)
	}
}

func TestLoadTokenizer(t *testing.T) {
	tok, err := loadTokenizer(config.LocalModelConfig{VocabPath: writeBERTVocab(t)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ids, _, _ := tok.Tokenize("hello", 4)
	if ids[0] != 101 || ids[1] != 7592 || ids[2] != 102 {
		t.Errorf("ids = %v", ids)
	}

	_, err = loadTokenizer(config.LocalModelConfig{VocabPath: "/nonexistent/vocab.txt"}, nil)
	if !errors.Is(err, ErrUnsupportedStrategy) {
		t.Errorf("missing vocab: expected ErrUnsupportedStrategy, got %v", err)
	}

	bad := filepath.Join(t.TempDir(), "vocab.txt")
	if err := os.WriteFile(bad, []byte("[PAD]\nhello\n"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err = loadTokenizer(config.LocalModelConfig{VocabPath: bad}, nil)
	if !errors.Is(err, ErrUnsupportedStrategy) {
		t.Errorf("vocab without special tokens: expected ErrUnsupportedStrategy, got %v", err)
	}
}
