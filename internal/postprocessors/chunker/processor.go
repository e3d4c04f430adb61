// Package chunker splits document text into overlapping passages.
//
// Splitting is recursive over a layered list of separators, coarsest first:
// paragraph, line, sentence, word, then single characters. Pieces that are
// still too long are split again with the next separator; adjacent small
// pieces are merged back up to the size budget. Sizes are counted in runes.
package chunker

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 800

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 100

// DefaultSeparators are tried in order. The empty separator splits into
// single characters and guarantees every chunk fits the size budget.
var DefaultSeparators = []string{"\n\n", "\n", ".", " ", ""}

// Processor splits text into chunks.
// It is stateless after construction and safe for concurrent use.
type Processor struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithSeparators replaces the separator list. Without "" a single unit
// longer than the chunk size is kept whole.
func WithSeparators(seps ...string) Option {
	return func(p *Processor) {
		if len(seps) > 0 {
			p.separators = append([]string(nil), seps...)
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// FromSettings creates a processor from chunking settings.
func FromSettings(s domain.ChunkingSettings) *Processor {
	return New(WithChunkSize(s.Size), WithOverlap(s.Overlap))
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured chunk size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// piece is one chunk under construction.
type piece struct {
	text    string
	overlap int // byte length of the leading overlap
}

// Split returns the chunk texts of text in order.
// Empty or whitespace-only text yields no chunks.
func (p *Processor) Split(text string) []string {
	pieces := p.split(text)
	out := make([]string, len(pieces))
	for i := range pieces {
		out[i] = pieces[i].text
	}
	return out
}

// ChunkDocument splits a document into positioned chunks.
func (p *Processor) ChunkDocument(doc domain.Document) []domain.Chunk {
	pieces := p.split(doc.Text)
	if len(pieces) == 0 {
		return nil
	}

	chunks := make([]domain.Chunk, 0, len(pieces))
	for i, pc := range pieces {
		chunks = append(chunks, domain.Chunk{
			ID:           doc.Name + "#" + strconv.Itoa(i),
			DocumentName: doc.Name,
			Position:     i,
			Content:      pc.text,
			Overlap:      pc.overlap,
		})
	}
	return chunks
}

func (p *Processor) split(text string) []piece {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	atoms := p.atomise(text, p.separators)
	return p.merge(atoms)
}

// atomise breaks text into units no longer than the chunk size, except
// where no finer separator is left. Separators stay attached to the end of
// the preceding unit, so the units concatenate back to text exactly.
func (p *Processor) atomise(text string, seps []string) []string {
	if runeLen(text) <= p.chunkSize {
		return []string{text}
	}

	sep, rest, ok := pickSeparator(text, seps)
	if !ok {
		return []string{text}
	}

	var parts []string
	if sep == "" {
		parts = make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			parts = append(parts, string(r))
		}
		return parts
	}

	var atoms []string
	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		if runeLen(part) <= p.chunkSize {
			atoms = append(atoms, part)
			continue
		}
		atoms = append(atoms, p.atomise(part, rest)...)
	}
	return atoms
}

// pickSeparator returns the first separator present in text and the finer
// separators after it.
func pickSeparator(text string, seps []string) (string, []string, bool) {
	for i, sep := range seps {
		if sep == "" || strings.Contains(text, sep) {
			return sep, seps[i+1:], true
		}
	}
	return "", nil, false
}

// merge packs atoms into chunks of at most chunkSize runes. Each chunk after
// the first starts with the trailing atoms of its predecessor that fit in
// the overlap budget. A chunk is never closed while it is blank: a
// whitespace run too long for one chunk stays with the text after it, or
// with the last chunk at the end, which is the only way a chunk grows past
// the budget on whitespace.
func (p *Processor) merge(atoms []string) []piece {
	var (
		out     []piece
		cur     []string
		curLen  int
		carried int // atoms at the head of cur copied from the previous chunk
	)

	emit := func() {
		if len(cur) == carried {
			return
		}
		text := strings.Join(cur, "")
		if strings.TrimSpace(text) == "" {
			return
		}
		overlap := 0
		for _, a := range cur[:carried] {
			overlap += len(a)
		}
		out = append(out, piece{text: text, overlap: overlap})
	}

	for _, atom := range atoms {
		n := runeLen(atom)
		if curLen+n > p.chunkSize && len(cur) > carried && !blank(cur) {
			emit()
			cur, curLen = p.tail(cur)
			// Drop carried context until the new atom fits.
			for len(cur) > 0 && curLen+n > p.chunkSize {
				curLen -= runeLen(cur[0])
				cur = cur[1:]
			}
			carried = len(cur)
		}
		cur = append(cur, atom)
		curLen += n
	}

	if len(out) > 0 && len(cur) > carried && blank(cur) {
		out[len(out)-1].text += strings.Join(cur[carried:], "")
		return out
	}
	emit()

	return out
}

func blank(atoms []string) bool {
	for _, a := range atoms {
		if strings.TrimSpace(a) != "" {
			return false
		}
	}
	return true
}

// tail returns the longest suffix of atoms whose length fits the overlap.
func (p *Processor) tail(atoms []string) ([]string, int) {
	if p.overlap == 0 {
		return nil, 0
	}
	total := 0
	start := len(atoms)
	for i := len(atoms) - 1; i >= 0; i-- {
		n := runeLen(atoms[i])
		if total+n > p.overlap {
			break
		}
		total += n
		start = i
	}
	return append([]string(nil), atoms[start:]...), total
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
