package lexicon

import (
	"sync"

	"github.com/galois26/creator-feed/internal/model"
)

var actors = []string{
	"Nova Reyes", "lofi_kid", "Marcus Vale", "beatsbyjun", "Ayla Moon", "DJ Pastel",
	"Theo Grant", "synthwitch", "Kenji Aoki", "Rosa Lind", "808mafia", "Iris Kade",
	"lyric_lane", "Omar Salt", "Penny Harbor", "wavetable", "Zara Quinn", "Milo Tran",
	"honeyvox", "Elias Stone", "Luna Park", "tapehiss", "Sienna Ford", "Kai Rivers",
	"noirkeys", "Hana Sol", "Dante Cruz", "vinylghost", "Maya Ortiz", "Jules Wren",
}

var vocab = Vocabulary{
	Adjectives:  []string{"hazy", "punchy", "dreamy", "gritty", "lush", "wonky", "warm", "glassy", "moody", "bouncy"},
	Genres:      []string{"lo-fi", "drill", "house", "synthwave", "neo-soul", "drum & bass", "trap", "ambient", "hyperpop", "boom bap"},
	Software:    []string{"Ableton", "FL Studio", "Logic", "Bitwig", "Reaper", "Serum", "Vital", "Pro Tools"},
	Instruments: []string{"Rhodes", "808", "Juno", "MPC", "Telecaster", "cello", "kalimba", "modular rig"},
	Challenges:  []string{"Flip the Sample", "60-Second Hook", "One Synth Only", "Midnight Beat Battle", "Verse Relay"},
	Badges:      []string{"Sample Surgeon", "Hook Smith", "Night Owl", "Genre Bender", "Mix Wizard"},
	Moods:       []string{"late-night", "rainy", "sunrise", "heartbreak", "road-trip", "victory"},
	Amounts:     []string{"$1", "$2", "$5", "$10", "$20", "$50"},
	Counts:      []string{"100", "250", "500", "1,000", "5,000", "10,000"},
}

var actionTemplates = map[model.Category][]string{
	model.Like: {
		"{user} liked {target}'s {adjective} {genre} loop",
		"{user} liked a {genre} sketch by {target}",
		"{user} hearted {target}'s new {instrument} take",
	},
	model.Comment: {
		"{user} commented on {target}'s track: \"that {instrument} is {adjective}\"",
		"{user} left feedback on {target}'s {genre} demo",
		"{user} replied to {target} in the {genre} thread",
	},
	model.Follow: {
		"{user} started following {target}",
		"{user} followed {target} after their {genre} drop",
	},
	model.Tip: {
		"{user} tipped {target} {amount}",
		"{user} sent {amount} to {target} for that {adjective} mix",
	},
	model.Supporter: {
		"{user} became a supporter of {target}",
		"{user} joined {target}'s inner circle",
	},
	model.Collab: {
		"{user} invited {target} to a {genre} collab",
		"{user} and {target} are cooking a {adjective} {genre} session",
	},
	model.Mint: {
		"{user} minted {collectible} #{serial}",
		"{user} dropped a new collectible: {collectible}",
	},
	model.Collect: {
		"{user} collected {collectible} #{serial} from {target}",
		"{user} picked up {target}'s {collectible}",
	},
	model.Auction: {
		"{user} bid {amount} on {collectible}",
		"Auction heating up: {collectible} #{serial}, top bid by {user}",
	},
	model.Challenge: {
		"{user} entered the {challenge} challenge",
		"{user} earned the {badge} badge in {challenge}",
	},
	model.Stream: {
		"{user} went live: {mood} {genre} session",
		"{user} is streaming a {software} breakdown",
	},
	model.Join: {
		"{user} just joined the community",
		"Welcome {user}, our newest {genre} head",
	},
	model.Chalkboard: {
		"{user} scribbled on {target}'s chalkboard",
		"{user} pinned a {mood} note to {target}'s chalkboard",
	},
}

var postTemplates = map[model.Category][]string{
	model.Track: {
		"New track: a {adjective} {genre} cut made in {software}",
		"Finished my {mood} {genre} beat, built around a {instrument}",
		"Uploaded a {genre} tape, all {instrument} and {adjective} drums",
	},
	model.Lyric: {
		"Wrote a {mood} verse tonight, need a {genre} beat for it",
		"Hook draft: something {adjective} about {mood} drives",
		"Lyrics for my {genre} single are done, who wants to hear?",
	},
	model.Question: {
		"How do you get {adjective} low end in {software}?",
		"Best way to sample a {instrument} without it sounding thin?",
		"Anyone switched from {software} for {genre}? Worth it?",
	},
	model.Showcase: {
		"Showcasing my {instrument} chain for {genre}",
		"Before/after mix of my {adjective} {genre} track",
	},
	model.Feedback: {
		"Roast my {genre} mixdown, be honest",
		"Need ears on a {adjective} {mood} demo",
	},
	model.Milestone: {
		"Just hit {count} plays on my {genre} track!",
		"{count} followers, thank you all",
	},
}

var (
	actionsOnce = sync.OnceValue(func() *Lexicon {
		return New("actions", actors, vocab, actionTemplates)
	})
	postsOnce = sync.OnceValue(func() *Lexicon {
		return New("posts", actors, vocab, postTemplates)
	})
)

// Actions is the built-in lexicon for the site-actions lane.
func Actions() *Lexicon { return actionsOnce() }

// Posts is the built-in lexicon for the community-posts lane.
func Posts() *Lexicon { return postsOnce() }
