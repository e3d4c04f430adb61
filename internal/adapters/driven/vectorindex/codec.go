package vectorindex

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// codecVersion is bumped whenever the encoded layout changes.
const codecVersion = 1

// ErrCorruptIndex indicates encoded index bytes that cannot be decoded.
var ErrCorruptIndex = errors.New("corrupt index data")

type encodedIndex struct {
	Version    int              `msgpack:"v"`
	Kind       domain.IndexKind `msgpack:"kind"`
	Dims       int              `msgpack:"dims"`
	Normalized bool             `msgpack:"norm"`
	Vectors    []float32        `msgpack:"vectors"`

	// HNSW only.
	M              int          `msgpack:"m,omitempty"`
	EfConstruction int          `msgpack:"efc,omitempty"`
	EfSearch       int          `msgpack:"efs,omitempty"`
	Seed           uint64       `msgpack:"seed,omitempty"`
	Levels         []uint8      `msgpack:"levels,omitempty"`
	Neighbors      [][][]uint32 `msgpack:"neighbors,omitempty"`
	Entry          uint32       `msgpack:"entry,omitempty"`
	MaxLevel       int          `msgpack:"max_level,omitempty"`
}

// Encode serialises an index built by this package.
func Encode(idx domain.VectorIndex) ([]byte, error) {
	var enc encodedIndex
	switch v := idx.(type) {
	case *Flat:
		enc = encodedIndex{
			Kind:       domain.IndexKindFlat,
			Dims:       v.dims,
			Normalized: v.normalized,
			Vectors:    v.vectors,
		}
	case *HNSW:
		enc = encodedIndex{
			Kind:           domain.IndexKindHNSW,
			Dims:           v.dims,
			Normalized:     v.normalized,
			Vectors:        v.vectors,
			M:              v.config.M,
			EfConstruction: v.config.EfConstruction,
			EfSearch:       v.config.EfSearch,
			Seed:           v.config.Seed,
			Levels:         v.levels,
			Neighbors:      v.neighbors,
			Entry:          v.entry,
			MaxLevel:       v.maxLevel,
		}
	default:
		return nil, fmt.Errorf("encode index: unsupported type %T", idx)
	}
	enc.Version = codecVersion

	data, err := msgpack.Marshal(&enc)
	if err != nil {
		return nil, fmt.Errorf("encode index: %w", err)
	}
	return data, nil
}

// Decode restores an index written by Encode.
func Decode(data []byte) (domain.VectorIndex, error) {
	var enc encodedIndex
	if err := msgpack.Unmarshal(data, &enc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	if enc.Version != codecVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptIndex, enc.Version)
	}
	if enc.Dims <= 0 || len(enc.Vectors) == 0 || len(enc.Vectors)%enc.Dims != 0 {
		return nil, fmt.Errorf("%w: %d values for dimension %d", ErrCorruptIndex, len(enc.Vectors), enc.Dims)
	}

	switch enc.Kind {
	case domain.IndexKindFlat:
		return &Flat{dims: enc.Dims, normalized: enc.Normalized, vectors: enc.Vectors}, nil
	case domain.IndexKindHNSW:
		return decodeHNSW(&enc)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrCorruptIndex, enc.Kind)
	}
}

func decodeHNSW(enc *encodedIndex) (*HNSW, error) {
	n := len(enc.Vectors) / enc.Dims
	if len(enc.Levels) != n || len(enc.Neighbors) != n {
		return nil, fmt.Errorf("%w: graph has %d levels and %d adjacency lists for %d vectors",
			ErrCorruptIndex, len(enc.Levels), len(enc.Neighbors), n)
	}
	if int(enc.Entry) >= n || int(enc.Levels[enc.Entry]) != enc.MaxLevel {
		return nil, fmt.Errorf("%w: bad entry point", ErrCorruptIndex)
	}
	for node, layers := range enc.Neighbors {
		if len(layers) != int(enc.Levels[node])+1 {
			return nil, fmt.Errorf("%w: node %d has %d layers", ErrCorruptIndex, node, len(layers))
		}
		for _, ids := range layers {
			for _, id := range ids {
				if int(id) >= n {
					return nil, fmt.Errorf("%w: node %d links to %d", ErrCorruptIndex, node, id)
				}
			}
		}
	}

	return &HNSW{
		dims:       enc.Dims,
		normalized: enc.Normalized,
		config: HNSWConfig{
			M:              enc.M,
			EfConstruction: enc.EfConstruction,
			EfSearch:       enc.EfSearch,
			Seed:           enc.Seed,
		}.withDefaults(),
		vectors:   enc.Vectors,
		levels:    enc.Levels,
		neighbors: enc.Neighbors,
		entry:     enc.Entry,
		maxLevel:  enc.MaxLevel,
	}, nil
}
