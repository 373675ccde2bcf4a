package model

// Category tags a kind of synthetic feed event. Base weights live with the lane's
// selector table, not here.
type Category string

const (
	Like       Category = "like"
	Comment    Category = "comment"
	Follow     Category = "follow"
	Tip        Category = "tip"
	Supporter  Category = "supporter"
	Collab     Category = "collab"
	Mint       Category = "mint"
	Collect    Category = "collect"
	Auction    Category = "auction"
	Challenge  Category = "challenge"
	Stream     Category = "stream"
	Join       Category = "join"
	Chalkboard Category = "chalkboard"

	// community posts
	Track     Category = "track"
	Lyric     Category = "lyric"
	Question  Category = "question"
	Showcase  Category = "showcase"
	Feedback  Category = "feedback"
	Milestone Category = "milestone"
)

// HasTarget reports whether events of this category name a second party.
func (c Category) HasTarget() bool {
	switch c {
	case Like, Follow, Tip, Supporter, Collab, Collect, Comment, Chalkboard:
		return true
	}
	return false
}

// HasCollectible reports whether events of this category reference a catalog item.
func (c Category) HasCollectible() bool {
	switch c {
	case Mint, Collect, Auction:
		return true
	}
	return false
}

// Template is an immutable message pattern owned by exactly one category.
type Template struct {
	ID       string   // stable within a lexicon, e.g. "like#2"
	Category Category
	Text     string
}

// Collectible is what the catalog hands back for mint/collect/auction events.
type Collectible struct {
	Name         string `json:"name"`
	SerialID     string `json:"serial_id"`
	ThumbnailRef string `json:"thumbnail_ref"`
}

// Avatar is derived from the actor name at generation time and never stored.
type Avatar struct {
	Initials string `json:"initials"`
	Color    string `json:"color"`
}

// Payload carries the rendered text plus category-specific fields. Absent fields
// are omitted from JSON rather than rendered as empty placeholders.
type Payload struct {
	Text        string       `json:"text"`
	Actor       string       `json:"actor,omitempty"`
	Avatar      *Avatar      `json:"avatar,omitempty"`
	Target      string       `json:"target,omitempty"`
	Amount      string       `json:"amount,omitempty"`
	Collectible *Collectible `json:"collectible,omitempty"`
	Challenge   string       `json:"challenge,omitempty"`
	Badge       string       `json:"badge,omitempty"`
	Hash        string       `json:"hash,omitempty"`
	Slug        string       `json:"slug,omitempty"`
}

// RawEvent is an event before stamping. TS is epoch milliseconds; zero means absent.
type RawEvent struct {
	Type       string  `json:"type"`
	ID         string  `json:"id,omitempty"`
	ActorID    string  `json:"actor_id,omitempty"`
	TemplateID string  `json:"template_id,omitempty"`
	TS         int64   `json:"ts,omitempty"`
	Payload    Payload `json:"payload"`
}

// Event is the normalized representation the feed buffer stores and sinks receive.
type Event struct {
	UID        string            `json:"uid"`
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	ActorID    string            `json:"actor_id,omitempty"`
	TemplateID string            `json:"template_id,omitempty"`
	TS         int64             `json:"ts"`
	Payload    Payload           `json:"payload"`
	Labels     map[string]string `json:"labels,omitempty"` // added by postprocess
}
