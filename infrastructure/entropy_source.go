package infrastructure

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"

	"prizepool/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// CommitRevealEntropySource is a two-phase seed source driven by the
// block counter. Each cycle spends its first half in the commit phase,
// where the seed for the cycle is fixed but not yet revealed; the
// second half reveals it. Rewarding is only allowed in the reveal
// phase, so the seed cannot be chosen after the committed stakes are
// known.
type CommitRevealEntropySource struct {
	mu sync.Mutex

	blocks      interfaces.BlockCounter
	cycleBlocks int64

	seededCycle int64
	seed        int64
	hasSeed     bool
}

// NewCommitRevealEntropySource creates a source with the given cycle
// length in blocks.
func NewCommitRevealEntropySource(blocks interfaces.BlockCounter, cycleBlocks int64) (*CommitRevealEntropySource, error) {
	if blocks == nil {
		return nil, fmt.Errorf("nil block counter")
	}
	if cycleBlocks < 2 {
		return nil, fmt.Errorf("cycle length must be at least 2 blocks, got %d", cycleBlocks)
	}
	return &CommitRevealEntropySource{
		blocks:      blocks,
		cycleBlocks: cycleBlocks,
	}, nil
}

// IsCommitPhase reports whether the current cycle is still committing.
func (s *CommitRevealEntropySource) IsCommitPhase(ctx context.Context) (bool, error) {
	now, err := s.blocks.CurrentBlock(ctx)
	if err != nil {
		return false, err
	}
	return now%s.cycleBlocks < s.cycleBlocks/2, nil
}

// CurrentSeed returns the seed for the current cycle, generating it on
// first use within the cycle.
func (s *CommitRevealEntropySource) CurrentSeed(ctx context.Context) (int64, error) {
	now, err := s.blocks.CurrentBlock(ctx)
	if err != nil {
		return 0, err
	}
	cycle := now / s.cycleBlocks

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasSeed && s.seededCycle == cycle {
		return s.seed, nil
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("failed to generate seed: %w", err)
	}

	s.seed = int64(binary.BigEndian.Uint64(buf[:]))
	s.seededCycle = cycle
	s.hasSeed = true

	log.WithField("cycle", cycle).Debug("Generated entropy seed")
	return s.seed, nil
}
