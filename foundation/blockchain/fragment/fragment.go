// Package fragment splits large payloads into hash tagged pieces and puts
// them back together. It has no knowledge of what the payload holds.
package fragment

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/golang/snappy"
)

// Thresholds above which a serialized value is fragmented.
const (
	BlockThreshold = 2048
	TxThreshold    = 1024
)

// DefaultSize is the maximum number of payload bytes carried by a fragment.
const DefaultSize = 1024

// maxPayload bounds the size of a reconstructed payload.
const maxPayload = 64 << 20

// Set of errors returned by Reconstruct.
var (
	ErrIncomplete = errors.New("fragment set is incomplete")
	ErrCorrupt    = errors.New("fragment set is corrupt")
)

// Fragment is one piece of a payload.
type Fragment struct {
	ID         string `json:"id"`         // Digest of the whole original payload.
	Index      int    `json:"index"`      // Position of the fragment, starting at 0.
	Total      int    `json:"total"`      // Number of fragments in the set.
	Hash       string `json:"hash"`       // Digest of Data.
	Compressed bool   `json:"compressed"` // The joined data is snappy encoded.
	Data       []byte `json:"data"`
}

// Needed reports whether the payload is over the threshold.
func Needed(data []byte, threshold int) bool {
	return len(data) > threshold
}

// Split breaks the payload into fragments of at most size bytes. The payload
// is snappy encoded first when that makes it smaller.
func Split(data []byte, size int) ([]Fragment, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid fragment size %d", size)
	}

	if len(data) == 0 {
		return nil, errors.New("nothing to fragment")
	}

	id := signature.HashBytes(data)

	body := data
	compressed := false
	if enc := snappy.Encode(nil, data); len(enc) < len(data) {
		body = enc
		compressed = true
	}

	total := (len(body) + size - 1) / size
	frags := make([]Fragment, 0, total)

	for i := 0; i < total; i++ {
		end := (i + 1) * size
		if end > len(body) {
			end = len(body)
		}

		chunk := make([]byte, end-i*size)
		copy(chunk, body[i*size:end])

		frags = append(frags, Fragment{
			ID:         id,
			Index:      i,
			Total:      total,
			Hash:       signature.HashBytes(chunk),
			Compressed: compressed,
			Data:       chunk,
		})
	}

	return frags, nil
}

// Reconstruct puts the payload back together. The fragments can be in any
// order. Missing, duplicated or mismatched fragments produce ErrIncomplete
// and a failed hash check produces ErrCorrupt. No partial data is returned.
func Reconstruct(frags []Fragment) ([]byte, error) {
	if len(frags) == 0 {
		return nil, fmt.Errorf("%w: no fragments", ErrIncomplete)
	}

	first := frags[0]
	if first.Total <= 0 || len(frags) != first.Total {
		return nil, fmt.Errorf("%w: have %d of %d fragments", ErrIncomplete, len(frags), first.Total)
	}

	ordered := make([]Fragment, len(frags))
	copy(ordered, frags)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	var size int
	for i, frag := range ordered {
		switch {
		case frag.ID != first.ID:
			return nil, fmt.Errorf("%w: fragment %d belongs to %s", ErrIncomplete, frag.Index, frag.ID)
		case frag.Total != first.Total:
			return nil, fmt.Errorf("%w: fragment %d reports %d total", ErrIncomplete, frag.Index, frag.Total)
		case frag.Compressed != first.Compressed:
			return nil, fmt.Errorf("%w: fragment %d compression flag differs", ErrCorrupt, frag.Index)
		case frag.Index != i:
			return nil, fmt.Errorf("%w: fragment %d missing", ErrIncomplete, i)
		}

		if signature.HashBytes(frag.Data) != frag.Hash {
			return nil, fmt.Errorf("%w: fragment %d hash mismatch", ErrCorrupt, frag.Index)
		}

		size += len(frag.Data)
	}

	body := make([]byte, 0, size)
	for _, frag := range ordered {
		body = append(body, frag.Data...)
	}

	data := body
	if first.Compressed {
		n, err := snappy.DecodedLen(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrCorrupt, err)
		}
		if n > maxPayload {
			return nil, fmt.Errorf("%w: decoded payload too large: %d", ErrCorrupt, n)
		}

		data, err = snappy.Decode(nil, body)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrCorrupt, err)
		}
	}

	if signature.HashBytes(data) != first.ID {
		return nil, fmt.Errorf("%w: payload hash mismatch", ErrCorrupt)
	}

	return data, nil
}
