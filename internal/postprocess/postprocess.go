package postprocess

import (
	"fmt"
	"maps"
	"regexp"
	"strings"

	"github.com/galois26/creator-feed/internal/config"
	"github.com/galois26/creator-feed/internal/model"
)

// Engine applies keyword, regex and mapping rules to attach labels to events.
type Engine struct {
	kw   []keywordRule
	regs []regexRule
	maps []mapRule
}

type keywordRule struct {
	words  []string
	labels map[string]string
}

type regexRule struct {
	field  string
	re     *regexp.Regexp
	labels map[string]string
}

type mapRule struct {
	field   string
	outKey  string
	mapping map[string]string
}

// New compiles the rules once. Blank rules are skipped; a bad regex is an error.
func New(cfg config.PostProcessConfig) (*Engine, error) {
	eng := &Engine{}
	for _, kr := range cfg.Keywords {
		words := make([]string, 0, len(kr.When))
		for _, w := range kr.When {
			if s := strings.TrimSpace(w); s != "" {
				words = append(words, strings.ToLower(s))
			}
		}
		if len(words) == 0 {
			continue
		}
		eng.kw = append(eng.kw, keywordRule{words: words, labels: kr.Labels})
	}
	for _, rr := range cfg.Regex {
		if strings.TrimSpace(rr.Field) == "" || strings.TrimSpace(rr.Expr) == "" {
			continue
		}
		re, err := regexp.Compile(rr.Expr)
		if err != nil {
			return nil, fmt.Errorf("postprocess regex %q: %w", rr.Expr, err)
		}
		eng.regs = append(eng.regs, regexRule{field: rr.Field, re: re, labels: rr.Labels})
	}
	for _, mr := range cfg.Maps {
		if strings.TrimSpace(mr.Field) == "" || len(mr.Mapping) == 0 {
			continue
		}
		out := mr.OutKey
		if out == "" {
			out = mr.Field
		}
		eng.maps = append(eng.maps, mapRule{field: mr.Field, outKey: out, mapping: mr.Mapping})
	}
	return eng, nil
}

// Empty reports whether the engine has no rules.
func (e *Engine) Empty() bool {
	return e == nil || len(e.kw)+len(e.regs)+len(e.maps) == 0
}

// Apply returns labelled copies of events. Every event gets at least a "type" label.
// Input events and their label maps are left untouched.
func (e *Engine) Apply(events []model.Event) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		labels := make(map[string]string, len(ev.Labels)+2)
		maps.Copy(labels, ev.Labels)
		labels["type"] = ev.Type
		ev.Labels = labels
		if e != nil {
			e.label(&ev)
		}
		out = append(out, ev)
	}
	return out
}

func (e *Engine) label(ev *model.Event) {
	// keyword rules need every word in the rendered text
	text := strings.ToLower(ev.Payload.Text)
	for _, kr := range e.kw {
		matched := true
		for _, w := range kr.words {
			if !strings.Contains(text, w) {
				matched = false
				break
			}
		}
		if matched {
			maps.Copy(ev.Labels, kr.labels)
		}
	}
	for _, rr := range e.regs {
		if val := field(ev, rr.field); val != "" && rr.re.MatchString(val) {
			maps.Copy(ev.Labels, rr.labels)
		}
	}
	for _, mr := range e.maps {
		val := field(ev, mr.field)
		if val == "" {
			continue
		}
		if mapped, ok := mr.mapping[val]; ok {
			ev.Labels[mr.outKey] = mapped
		}
	}
}

func field(e *model.Event, name string) string {
	switch strings.ToLower(name) {
	case "text":
		return e.Payload.Text
	case "type", "category":
		return e.Type
	case "actor":
		return e.ActorID
	case "target":
		return e.Payload.Target
	case "template":
		return e.TemplateID
	default:
		return e.Labels[name]
	}
}
