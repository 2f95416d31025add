package kg

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/atlasops/traingraph/pkg/common"
	"github.com/atlasops/traingraph/pkg/store"
)

// sanitizeIDPart strips everything but letters and digits from a
// label-derived id fragment and lowercases it.
func sanitizeIDPart(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else if r >= 'A' && r <= 'Z' {
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	if b.Len() == 0 {
		return "entity"
	}
	return b.String()
}

// generateNodeID allocates an identifier for a node from its type and label,
// a millisecond timestamp, and a random 4-digit suffix. Candidates are
// collision-checked against the store; after idAttempts failed candidates
// the allocation fails with ErrIDGeneration.
func (e *Engine) generateNodeID(ctx context.Context, node *common.KnowledgeNode) (string, error) {
	prefix := fmt.Sprintf("%s_%s", sanitizeIDPart(node.Type), sanitizeIDPart(node.Label))
	return e.generateID(ctx, prefix, func(ctx context.Context, id string) (bool, error) {
		_, err := e.store.GetNode(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return true, nil
		}
		return false, err
	})
}

// generateRelationshipID allocates an identifier for a relationship from its
// type and endpoint ids.
func (e *Engine) generateRelationshipID(ctx context.Context, rel *common.KnowledgeRelationship) (string, error) {
	prefix := fmt.Sprintf("rel_%s_%s_%s",
		sanitizeIDPart(rel.Type.String()),
		sanitizeIDPart(rel.SourceID),
		sanitizeIDPart(rel.TargetID),
	)
	return e.generateID(ctx, prefix, func(ctx context.Context, id string) (bool, error) {
		_, err := e.store.GetRelationship(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return true, nil
		}
		return false, err
	})
}

// generateID runs the bounded candidate loop. free reports whether the
// candidate id is unused. Only collisions are retried; a store error aborts
// the allocation immediately.
func (e *Engine) generateID(ctx context.Context, prefix string, free func(context.Context, string) (bool, error)) (string, error) {
	attempts := e.idAttempts
	if attempts <= 0 {
		attempts = defaultIDAttempts
	}

	for i := 0; i < attempts; i++ {
		candidate := fmt.Sprintf("%s_%d_%04d", prefix, time.Now().UnixMilli(), rand.Intn(10000))
		ok, err := free(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("collision check for %s: %v: %w", candidate, err, ErrGraphOperation)
		}
		if ok {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free id found for prefix %s after %d attempts: %w", prefix, attempts, ErrIDGeneration)
}
