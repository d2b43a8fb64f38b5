package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/osvaldoandrade/songbridge/pkg/config"
	"github.com/osvaldoandrade/songbridge/pkg/domain"
)

const keyPrefix = "songbridge:rl:"

type Bucket struct {
	RequestsPerMinute int
	BurstSize         int
}

func (b Bucket) Enabled() bool {
	return b.RequestsPerMinute > 0 && b.BurstSize > 0
}

// interval is the time one request costs, rounded up to a whole millisecond.
func (b Bucket) interval() time.Duration {
	ms := (60_000 + int64(b.RequestsPerMinute) - 1) / int64(b.RequestsPerMinute)
	return time.Duration(ms) * time.Millisecond
}

// Policy assigns a bucket to each generation kind. Kinds without their own
// bucket use Default.
type Policy struct {
	Default Bucket
	Kinds   map[domain.TaskKind]Bucket
}

func PolicyFromConfig(cfg config.RateLimitConfig) Policy {
	p := Policy{
		Default: Bucket(cfg.Generate),
		Kinds:   make(map[domain.TaskKind]Bucket, len(cfg.Kinds)),
	}
	for name, b := range cfg.Kinds {
		if kind, ok := domain.ParseTaskKind(name); ok {
			p.Kinds[kind] = Bucket(b)
		}
	}
	return p
}

func (p Policy) For(kind domain.TaskKind) Bucket {
	if b, ok := p.Kinds[kind]; ok {
		return b
	}
	return p.Default
}

// Enabled reports whether any kind is throttled at all.
func (p Policy) Enabled() bool {
	if p.Default.Enabled() {
		return true
	}
	for _, b := range p.Kinds {
		if b.Enabled() {
			return true
		}
	}
	return false
}

// Subject is one budget: a client spending on one kind of generation.
type Subject struct {
	Client string
	Kind   domain.TaskKind
}

func (s Subject) key() string {
	client := strings.TrimSpace(s.Client)
	if client == "" {
		client = "unknown"
	}
	kind := string(s.Kind)
	if !s.Kind.Valid() {
		kind = "any"
	}
	sum := sha256.Sum256([]byte(client))
	return keyPrefix + kind + ":" + hex.EncodeToString(sum[:12])
}
