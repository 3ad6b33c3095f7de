package domain

import (
	"bytes"
	"encoding/binary"

	"github.com/btcsuite/btcd/wire"
)

// ChainIndex is the height-ordered sequence of block headers tracked by the
// monitor. Height 0 is the (implicit) genesis block, the first stored header
// sits at height 1. It is a plain in-memory entity, callers are responsible
// for serializing concurrent access.
type ChainIndex struct {
	headers []wire.BlockHeader
}

// NewChainIndex returns an index holding only the implicit genesis block.
func NewChainIndex() *ChainIndex {
	return &ChainIndex{}
}

// Height returns the height of the chain tip.
func (c *ChainIndex) Height() int32 {
	return int32(len(c.headers))
}

// Tip returns the best known header. The boolean is false while the index
// holds nothing beyond genesis.
func (c *ChainIndex) Tip() (wire.BlockHeader, bool) {
	if len(c.headers) == 0 {
		return wire.BlockHeader{}, false
	}
	return c.headers[len(c.headers)-1], true
}

// Append extends the index with headers that must connect to the current
// tip. The first headers ever appended are accepted as the post-genesis
// anchor without a parent check.
func (c *ChainIndex) Append(headers ...*wire.BlockHeader) error {
	for _, header := range headers {
		if len(c.headers) > 0 {
			tip := c.headers[len(c.headers)-1]
			tipHash := tip.BlockHash()
			if !header.PrevBlock.IsEqual(&tipHash) {
				return ErrHeaderMismatch
			}
		}
		c.headers = append(c.headers, *header)
	}
	return nil
}

// Serialize returns the index as an opaque snapshot blob of wire-encoded
// headers.
func (c *ChainIndex) Serialize() ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(c.headers))); err != nil {
		return nil, err
	}
	for i := range c.headers {
		if err := c.headers[i].Serialize(buf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DeserializeChainIndex rebuilds a chain index from a snapshot blob.
func DeserializeChainIndex(buf []byte) (*ChainIndex, error) {
	r := bytes.NewReader(buf)
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	headers := make([]wire.BlockHeader, count)
	for i := range headers {
		if err := headers[i].Deserialize(r); err != nil {
			return nil, err
		}
	}
	return &ChainIndex{headers: headers}, nil
}
