package storage

import (
	"fmt"

	"github.com/quillchain/quill/pkg/chain"
)

// SaveBlock persists a committed block at its height.
func (s *Store) SaveBlock(b *chain.Block) error {
	data, err := encodeGob(b)
	if err != nil {
		return fmt.Errorf("encoding block %d: %w", b.Height, err)
	}
	if err := s.set(blockKey(b.Height), data); err != nil {
		return fmt.Errorf("saving block %d: %w", b.Height, err)
	}
	return nil
}

// Block loads a committed block by height.
func (s *Store) Block(height uint64) (*chain.Block, error) {
	data, err := s.get(blockKey(height))
	if err != nil {
		return nil, fmt.Errorf("getting block %d: %w", height, err)
	}
	if data == nil {
		return nil, fmt.Errorf("block %d not found", height)
	}

	var b chain.Block
	if err := decodeGob(data, &b); err != nil {
		return nil, fmt.Errorf("decoding block %d: %w", height, err)
	}
	return &b, nil
}

// DeleteBlock removes an orphaned block.
func (s *Store) DeleteBlock(height uint64) error {
	if err := s.delete(blockKey(height)); err != nil {
		return fmt.Errorf("deleting block %d: %w", height, err)
	}
	return nil
}

// SaveHeight records the committed chain height.
func (s *Store) SaveHeight(height uint64) error {
	if err := s.set([]byte(keyHeight), uint64Bytes(height)); err != nil {
		return fmt.Errorf("saving chain height: %w", err)
	}
	return nil
}

// LoadHeight returns the committed chain height, 0 for a fresh database.
func (s *Store) LoadHeight() (uint64, error) {
	data, err := s.get([]byte(keyHeight))
	if err != nil {
		return 0, fmt.Errorf("getting chain height: %w", err)
	}
	return bytesUint64(data), nil
}

var _ chain.BlockStore = (*Store)(nil)
