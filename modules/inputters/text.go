package inputters

import (
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/vk/trainkit/internal/component"
	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/fsutil"
)

// TextGeneration reads plain text corpora for character-level models. Each
// dataset meta entry is a .txt file or a directory searched recursively for
// .txt files. Samples are consecutive windows of SeqLength characters with
// the label shifted by one character.
type TextGeneration struct {
	dataset

	seqLength int

	vocabOnce sync.Once
	vocab     []string
	vocabErr  error
}

// NewTextGeneration creates a text generation inputter.
func NewTextGeneration(cfg *config.Config) (*TextGeneration, error) {
	if cfg.SeqLength <= 0 {
		return nil, fmt.Errorf("seq_length must be positive, got %d", cfg.SeqLength)
	}
	in := &TextGeneration{seqLength: cfg.SeqLength}
	in.dataset = dataset{
		name:       TextGenerationName,
		cfg:        cfg,
		inferField: "text",
		load:       in.load,
	}
	return in, nil
}

// SeqLength is the window size of one sample.
func (in *TextGeneration) SeqLength() int { return in.seqLength }

// Vocabulary returns the sorted distinct characters of the corpus. It is
// read from the dataset meta files in every mode, since export and infer
// need the same character table as training.
func (in *TextGeneration) Vocabulary() ([]string, error) {
	in.vocabOnce.Do(func() {
		text, err := in.corpus()
		if err != nil {
			in.vocabErr = err
			return
		}
		seen := map[rune]struct{}{}
		for _, r := range text {
			seen[r] = struct{}{}
		}
		for r := range seen {
			in.vocab = append(in.vocab, string(r))
		}
		slices.Sort(in.vocab)
	})
	return in.vocab, in.vocabErr
}

func (in *TextGeneration) corpus() ([]rune, error) {
	var text []rune
	for _, meta := range in.cfg.DatasetMeta {
		files, err := fsutil.FindFilesByExtension(meta, ".txt")
		if err != nil {
			return nil, fmt.Errorf("cannot read text corpus '%s': %w", meta, err)
		}
		for _, f := range files {
			b, err := os.ReadFile(f)
			if err != nil {
				return nil, fmt.Errorf("cannot read text corpus '%s': %w", f, err)
			}
			text = append(text, []rune(string(b))...)
		}
	}
	return text, nil
}

func (in *TextGeneration) load() ([]component.Sample, error) {
	text, err := in.corpus()
	if err != nil {
		return nil, err
	}
	n := 0
	if len(text) > 0 {
		n = (len(text) - 1) / in.seqLength
	}
	out := make([]component.Sample, 0, n)
	for i := range n {
		start := i * in.seqLength
		out = append(out, component.Sample{
			Index: i,
			Fields: map[string]string{
				"text":  string(text[start : start+in.seqLength]),
				"label": string(text[start+1 : start+in.seqLength+1]),
			},
		})
	}
	return out, nil
}
