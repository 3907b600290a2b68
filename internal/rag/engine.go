// Package rag answers questions over the document index: embed the query,
// retrieve the nearest chunks, then synthesize an answer with the chat
// model using one of four response modes.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/orgbridge/go-orgbridge/internal/vecstore"
)

// Response modes. They differ in how retrieved chunks are combined before
// and during answer synthesis.
const (
	// ModeTreeSummarize answers over groups of chunks bottom-up, then
	// answers over the group answers.
	ModeTreeSummarize = "tree_summarize"
	// ModeRefine answers on the first chunk and refines with each next one.
	ModeRefine = "refine"
	// ModeCompact packs as many chunks as fit one context block, refining
	// only when the chunks overflow the budget.
	ModeCompact = "compact"
	// ModeSimpleSummarize concatenates everything into one block, truncated
	// to the budget, and answers once.
	ModeSimpleSummarize = "simple_summarize"
)

// ValidModes lists the accepted response modes in documentation order.
var ValidModes = []string{ModeTreeSummarize, ModeRefine, ModeCompact, ModeSimpleSummarize}

// IsValidMode reports whether mode names a supported response mode.
func IsValidMode(mode string) bool {
	for _, m := range ValidModes {
		if m == mode {
			return true
		}
	}
	return false
}

// DefaultTopK is how many chunks are retrieved per query.
const DefaultTopK = 10

// maxContextBytes bounds how much chunk text goes into a single prompt.
const maxContextBytes = 8000

// sourceTextLimit bounds source text echoed back in results.
const sourceTextLimit = 200

// ErrNoDocuments is returned when the index holds nothing to retrieve.
var ErrNoDocuments = errors.New("rag: no documents in the index")

// Retriever is the slice of the vector store the engine needs.
type Retriever interface {
	Search(ctx context.Context, embedding []float32, topK int) ([]vecstore.Match, error)
}

// QueryEmbedder embeds query text.
type QueryEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Completer produces an answer from a system + user prompt.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Source is one retrieved chunk echoed back with the answer.
type Source struct {
	Text     string         `json:"text"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Result is a synthesized answer with its supporting sources.
type Result struct {
	Query    string   `json:"query"`
	Response string   `json:"response"`
	Sources  []Source `json:"sources"`
}

// Options tune an Engine.
type Options struct {
	Mode string // default ModeTreeSummarize
	TopK int    // default DefaultTopK
}

// Engine wires retrieval and synthesis together.
type Engine struct {
	store    Retriever
	embedder QueryEmbedder
	chat     Completer
	mode     string
	topK     int
}

// NewEngine builds an engine. The zero Options give tree_summarize over the
// top 10 chunks.
func NewEngine(store Retriever, embedder QueryEmbedder, chat Completer, opts Options) (*Engine, error) {
	if opts.Mode == "" {
		opts.Mode = ModeTreeSummarize
	}
	if !IsValidMode(opts.Mode) {
		return nil, fmt.Errorf("rag: invalid response mode %q", opts.Mode)
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	return &Engine{
		store:    store,
		embedder: embedder,
		chat:     chat,
		mode:     opts.Mode,
		topK:     opts.TopK,
	}, nil
}

// Mode reports the engine's response mode.
func (e *Engine) Mode() string { return e.mode }

// Answer retrieves the chunks nearest to query and synthesizes an answer.
// Returns ErrNoDocuments when retrieval comes back empty.
func (e *Engine) Answer(ctx context.Context, query string) (*Result, error) {
	vec, err := e.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("rag: embed query: %w", err)
	}
	matches, err := e.store.Search(ctx, vec, e.topK)
	if err != nil {
		return nil, fmt.Errorf("rag: search: %w", err)
	}
	if len(matches) == 0 {
		return nil, ErrNoDocuments
	}

	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Text
	}

	var response string
	switch e.mode {
	case ModeRefine:
		response, err = e.refine(ctx, query, texts)
	case ModeCompact:
		response, err = e.compact(ctx, query, texts)
	case ModeSimpleSummarize:
		response, err = e.simpleSummarize(ctx, query, texts)
	default:
		response, err = e.treeSummarize(ctx, query, texts)
	}
	if err != nil {
		return nil, err
	}

	return &Result{
		Query:    query,
		Response: strings.TrimSpace(response),
		Sources:  buildSources(matches),
	}, nil
}

// simpleSummarize answers once over everything, truncated to the budget.
func (e *Engine) simpleSummarize(ctx context.Context, query string, texts []string) (string, error) {
	block := strings.Join(texts, "\n\n")
	if len(block) > maxContextBytes {
		block = block[:maxContextBytes]
	}
	return e.chat.Complete(ctx, answerSystemPrompt, answerPrompt(query, block))
}

// compact packs chunks into as few context blocks as possible, answering on
// the first block and refining with the rest.
func (e *Engine) compact(ctx context.Context, query string, texts []string) (string, error) {
	blocks := packTexts(texts, maxContextBytes)
	answer, err := e.chat.Complete(ctx, answerSystemPrompt, answerPrompt(query, blocks[0]))
	if err != nil {
		return "", fmt.Errorf("rag: synthesize: %w", err)
	}
	for _, block := range blocks[1:] {
		answer, err = e.chat.Complete(ctx, answerSystemPrompt, refinePrompt(query, answer, block))
		if err != nil {
			return "", fmt.Errorf("rag: refine: %w", err)
		}
	}
	return answer, nil
}

// refine answers on the first chunk, then refines with each next chunk.
func (e *Engine) refine(ctx context.Context, query string, texts []string) (string, error) {
	answer, err := e.chat.Complete(ctx, answerSystemPrompt, answerPrompt(query, texts[0]))
	if err != nil {
		return "", fmt.Errorf("rag: synthesize: %w", err)
	}
	for _, text := range texts[1:] {
		answer, err = e.chat.Complete(ctx, answerSystemPrompt, refinePrompt(query, answer, text))
		if err != nil {
			return "", fmt.Errorf("rag: refine: %w", err)
		}
	}
	return answer, nil
}

// treeSummarize answers over chunk groups, then repeats over the answers
// until one remains.
func (e *Engine) treeSummarize(ctx context.Context, query string, texts []string) (string, error) {
	for {
		blocks := packTexts(texts, maxContextBytes)
		if len(blocks) == 1 {
			return e.chat.Complete(ctx, answerSystemPrompt, answerPrompt(query, blocks[0]))
		}
		summaries := make([]string, 0, len(blocks))
		for _, block := range blocks {
			summary, err := e.chat.Complete(ctx, answerSystemPrompt, answerPrompt(query, block))
			if err != nil {
				return "", fmt.Errorf("rag: summarize group: %w", err)
			}
			summaries = append(summaries, summary)
		}
		texts = summaries
	}
}

// packTexts greedily joins texts into blocks of at most budget bytes,
// preserving order. A single oversized text becomes its own block rather
// than being split.
func packTexts(texts []string, budget int) []string {
	var blocks []string
	var cur strings.Builder
	for _, t := range texts {
		if cur.Len() > 0 && cur.Len()+len(t)+2 > budget {
			blocks = append(blocks, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(t)
	}
	if cur.Len() > 0 {
		blocks = append(blocks, cur.String())
	}
	return blocks
}

func buildSources(matches []vecstore.Match) []Source {
	sources := make([]Source, 0, len(matches))
	for _, m := range matches {
		text := m.Text
		if len(text) > sourceTextLimit {
			text = text[:sourceTextLimit] + "..."
		}
		sources = append(sources, Source{
			Text:     text,
			Score:    m.Score,
			Metadata: m.Metadata,
		})
	}
	return sources
}
