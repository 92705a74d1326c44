package embedding

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// writeBERTVocab writes a vocab.txt whose listed tokens sit at their bert-base-uncased IDs.
func writeBERTVocab(t *testing.T) string {
	t.Helper()
	lines := make([]string, 7600)
	for i := range lines {
		lines[i] = fmt.Sprintf("[unused%d]", i)
	}
	for tok, id := range map[string]int{
		"[PAD]": 0, "[UNK]": 100, "[CLS]": 101, "[SEP]": 102,
		"!": 999, ",": 1010, "##s": 2015, "world": 2088, "hello": 7592,
	} {
		lines[id] = tok
	}
	path := filepath.Join(t.TempDir(), "vocab.txt")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func newBERTTokenizer(t *testing.T) *WordPieceTokenizer {
	t.Helper()
	vocab, err := LoadVocab(writeBERTVocab(t))
	if err != nil {
		t.Fatal(err)
	}
	tok, err := NewWordPieceTokenizer(vocab)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestWordPieceTokenizer_Tokenize(t *testing.T) {
	tok := newBERTTokenizer(t)
	ids, attn, types := tok.Tokenize("Hello, World!", 8)
	if want := []int64{101, 7592, 1010, 2088, 999, 102, 0, 0}; !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
	if want := []int64{1, 1, 1, 1, 1, 1, 0, 0}; !reflect.DeepEqual(attn, want) {
		t.Errorf("attention mask = %v, want %v", attn, want)
	}
	if want := make([]int64, 8); !reflect.DeepEqual(types, want) {
		t.Errorf("token types = %v", types)
	}
}

func TestWordPieceTokenizer_Encode(t *testing.T) {
	tok := newBERTTokenizer(t)
	tests := []struct {
		name string
		text string
		want []int64
	}{
		{"subword suffix", "worlds", []int64{2088, 2015}},
		{"unknown word", "zzz hello", []int64{100, 7592}},
		{"accents and case", "HÉLLO", []int64{7592}},
		{"empty", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tok.Encode(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Encode(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestWordPieceTokenizer_LongestMatchFirst(t *testing.T) {
	tok, err := NewWordPieceTokenizer(map[string]int64{
		"[UNK]": 1, "[CLS]": 2, "[SEP]": 3,
		"u": 9, "un": 10, "##a": 11, "##aff": 12, "##able": 13,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := tok.Encode("unaffable"), []int64{10, 12, 13}; !reflect.DeepEqual(got, want) {
		t.Errorf("Encode = %v, want %v", got, want)
	}
	// A word with any unmatched remainder becomes a single [UNK].
	if got, want := tok.Encode("unaffx"), []int64{1}; !reflect.DeepEqual(got, want) {
		t.Errorf("Encode = %v, want %v", got, want)
	}
	if got, want := tok.Encode(strings.Repeat("a", maxWordRunes+1)), []int64{1}; !reflect.DeepEqual(got, want) {
		t.Errorf("overlong word = %v, want %v", got, want)
	}
}

func TestWordPieceTokenizer_Truncates(t *testing.T) {
	tok := newBERTTokenizer(t)
	ids, attn, _ := tok.Tokenize("hello hello hello hello hello", 4)
	if want := []int64{101, 7592, 7592, 102}; !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
	for i, a := range attn {
		if a != 1 {
			t.Errorf("attn[%d]=%d, want 1", i, a)
		}
	}
}

func TestNewWordPieceTokenizer_missingSpecialTokens(t *testing.T) {
	if _, err := NewWordPieceTokenizer(map[string]int64{"[CLS]": 0, "[SEP]": 1}); err == nil {
		t.Error("expected error without [UNK]")
	}
}

func TestLoadVocab_errors(t *testing.T) {
	if _, err := LoadVocab(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
	empty := filepath.Join(t.TempDir(), "vocab.txt")
	if err := os.WriteFile(empty, nil, 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadVocab(empty); err == nil {
		t.Error("expected error for empty vocabulary")
	}
}
