// Package snapshot implements JSON encoding of per-player snapshots and the
// zstd frames they travel in.
package snapshot

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/nathoo/regioncore/types"
)

// Encode serializes a snapshot. Nil lists encode as empty arrays.
func Encode(s types.Snapshot) ([]byte, error) {
	normalize(&s)
	return json.Marshal(s)
}

// Decode deserializes a snapshot.
func Decode(data []byte) (*types.Snapshot, error) {
	var s types.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	normalize(&s)
	return &s, nil
}

func normalize(s *types.Snapshot) {
	if s.Displacements == nil {
		s.Displacements = []types.Displacement{}
	}
	if s.Characters == nil {
		s.Characters = []types.CharacterData{}
	}
	if s.Lights == nil {
		s.Lights = []types.Light{}
	}
	if s.Messages == nil {
		s.Messages = []types.MessageData{}
	}
	if s.Audio == nil {
		s.Audio = []string{}
	}
}

var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecErr  error
)

func codec() error {
	codecOnce.Do(func() {
		encoder, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if codecErr != nil {
			return
		}
		decoder, codecErr = zstd.NewReader(nil)
	})
	return codecErr
}

// Compress wraps an encoded snapshot in a zstd frame.
func Compress(data []byte) ([]byte, error) {
	if err := codec(); err != nil {
		return nil, err
	}
	return encoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// Decompress unwraps a zstd frame.
func Decompress(frame []byte) ([]byte, error) {
	if err := codec(); err != nil {
		return nil, err
	}
	out, err := decoder.DecodeAll(frame, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd frame: %w", err)
	}
	return out, nil
}
