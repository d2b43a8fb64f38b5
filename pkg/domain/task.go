package domain

import (
	"encoding"
	"strings"
)

// TaskKind is the generation domain a provider task belongs to.
type TaskKind string

const (
	KindMusic  TaskKind = "music"
	KindLyrics TaskKind = "lyrics"
	KindCover  TaskKind = "cover"
)

// DedupKinds are the kinds whose callbacks are deduplicated and pushed. Each has
// its own processed set; covers are stored and polled instead.
var DedupKinds = []TaskKind{KindMusic, KindLyrics}

// Provider-side status and stage values carried by music callbacks.
const (
	ProviderStatusSuccess = "SUCCESS"
	ProviderStatusFailure = "FAILURE"

	StageComplete = "complete"
	StageError    = "error"
)

var (
	_ encoding.BinaryMarshaler = TaskKind("")
	_ encoding.TextMarshaler   = TaskKind("")
)

func (k TaskKind) MarshalBinary() ([]byte, error) { return []byte(string(k)), nil }
func (k TaskKind) MarshalText() ([]byte, error)   { return []byte(string(k)), nil }

func (k TaskKind) Valid() bool {
	switch k {
	case KindMusic, KindLyrics, KindCover:
		return true
	}
	return false
}

func ParseTaskKind(s string) (TaskKind, bool) {
	k := TaskKind(strings.ToLower(strings.TrimSpace(s)))
	return k, k.Valid()
}
