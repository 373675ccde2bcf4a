// Package normalize stamps raw events with a timestamp and a composite dedup identity.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/galois26/creator-feed/internal/model"
)

// Normalizer is safe for concurrent use as long as Now and Token are.
type Normalizer struct {
	Now   func() time.Time
	Token func() string
}

// New returns a normalizer on the wall clock with uuid-derived tokens.
func New() *Normalizer {
	return &Normalizer{Now: time.Now, Token: RandomToken}
}

// RandomToken is a short random identifier.
func RandomToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Normalize resolves ts, id and fingerprint and builds the uid
// "<type>:<id>:<ts>:<fingerprint>". Events carrying the same id, ts and fingerprint
// collapse to the same uid.
func (n *Normalizer) Normalize(raw model.RawEvent) model.Event {
	ts := raw.TS
	if ts == 0 {
		ts = n.now().UnixMilli()
	}
	id := raw.ID
	if id == "" {
		id = n.token()
	}
	fp := raw.Payload.Hash
	if fp == "" {
		fp = raw.Payload.Slug
	}
	if fp == "" {
		fp = n.token()
	}
	return model.Event{
		UID:        UID(raw.Type, id, ts, fp),
		Type:       raw.Type,
		ID:         id,
		ActorID:    raw.ActorID,
		TemplateID: raw.TemplateID,
		TS:         ts,
		Payload:    raw.Payload,
	}
}

// NormalizeAll normalizes each raw event in order.
func (n *Normalizer) NormalizeAll(raws []model.RawEvent) []model.Event {
	out := make([]model.Event, 0, len(raws))
	for _, r := range raws {
		out = append(out, n.Normalize(r))
	}
	return out
}

func UID(typ, id string, ts int64, fingerprint string) string {
	return fmt.Sprintf("%s:%s:%d:%s", typ, id, ts, fingerprint)
}

func (n *Normalizer) now() time.Time {
	if n.Now == nil {
		return time.Now()
	}
	return n.Now()
}

func (n *Normalizer) token() string {
	if n.Token == nil {
		return RandomToken()
	}
	return n.Token()
}
