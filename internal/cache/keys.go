package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func ConsensusKey(decisionID uuid.UUID) string {
	return fmt.Sprintf("consensus:%s", decisionID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
