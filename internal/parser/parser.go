// Package parser recovers a workspace template from free-form layout text.
//
// Each non-empty line is classified by an ordered list of rules (role,
// category, channel); the first rule whose predicate matches handles the
// line. Parsing never fails: unusable input yields a template with no
// categories, which callers treat as a degraded result.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/layoutkit/internal/model"
	"github.com/rcliao/layoutkit/internal/perms"
)

var (
	colorRe        = regexp.MustCompile(`(?i)color\s*:\s*#([0-9a-f]{6})[0-9a-f]*`)
	permissionsRe  = regexp.MustCompile(`(?i)permissions\s*:\s*\[([^\]]*)\]`)
	typeRe         = regexp.MustCompile(`(?i)type\s*:\s*(text|voice)\b`)
	voiceWordRe    = regexp.MustCompile(`(?i)\bvoice\b`)
	voiceTokenRe   = regexp.MustCompile(`(?i)(?:^|\s)voice(?:\s|$)`)
	hashSignalRe   = regexp.MustCompile(`#\S+`)
	hashNameRe     = regexp.MustCompile(`#([\p{L}\p{N}_-]+)`)
	categoryMarkRe = regexp.MustCompile(`(?i)\(\s*category\s*\)`)
	topicRe        = regexp.MustCompile(`\s-\s+(.+)$`)
	leadingMarkRe  = regexp.MustCompile(`^[-\s|]+`)
	spacesRe       = regexp.MustCompile(`\s+`)
	hyphensRe      = regexp.MustCompile(`-+`)
)

// invisible characters removed before classification.
var invisibles = strings.NewReplacer(
	"\ufeff", "",
	"\u200b", "",
	"\u200c", "",
	"\u200d", "",
	"\u2060", "",
	"\u00a0", " ",
	":", " :",
)

// Option configures a Parser.
type Option func(*Parser)

// WithRefGenerator replaces the role reference generator.
func WithRefGenerator(fn func() string) Option {
	return func(p *Parser) { p.newRef = fn }
}

// Parser turns layout text into templates. A Parser holds no state
// between calls and is safe for concurrent use if its ref generator is.
type Parser struct {
	newRef func() string
	rules  []rule
}

// New returns a Parser.
func New(opts ...Option) *Parser {
	p := &Parser{newRef: newRoleRef}
	for _, o := range opts {
		o(p)
	}
	p.rules = []rule{
		{name: "role", match: isRoleLine, apply: p.addRole},
		{name: "category", match: isCategory, apply: addCategory},
		{name: "channel", match: func(string) bool { return true }, apply: addChannel},
	}
	return p
}

func newRoleRef() string {
	return "role-" + strings.ToLower(ulid.Make().String())
}

// Parse parses raw with a default Parser.
func Parse(raw string) model.Template {
	return New().Parse(raw)
}

// rule is one classification step. Rules are evaluated in order and the
// first match handles the line.
type rule struct {
	name  string
	match func(line string) bool
	apply func(st *state, line string)
}

// state is the template under construction for a single Parse call.
type state struct {
	tpl     model.Template
	current int // index of the current category, -1 before the first one
}

func (s *state) category() *model.Category {
	if s.current < 0 {
		s.tpl.Categories = append(s.tpl.Categories, model.Category{Name: "General", Channels: []model.ChannelSpec{}})
		s.current = len(s.tpl.Categories) - 1
	}
	return &s.tpl.Categories[s.current]
}

// Parse recovers a template from raw. The result has zero categories when
// nothing usable was found.
func (p *Parser) Parse(raw string) model.Template {
	st := &state{
		tpl:     model.Template{Categories: []model.Category{}, Roles: []model.RoleSpec{}},
		current: -1,
	}

	for _, line := range strings.Split(raw, "\n") {
		line = Normalize(line)
		if line == "" {
			continue
		}
		for _, r := range p.rules {
			if r.match(line) {
				r.apply(st, line)
				break
			}
		}
	}

	st.tpl.Summary = model.Summarize(st.tpl)
	return st.tpl
}

// Normalize strips invisible characters, spaces out colons and collapses
// whitespace.
func Normalize(line string) string {
	line = invisibles.Replace(line)
	return strings.TrimSpace(spacesRe.ReplaceAllString(line, " "))
}

func isRoleLine(line string) bool {
	return colorRe.MatchString(line)
}

func isCategory(line string) bool {
	if categoryMarkRe.MatchString(line) {
		return true
	}
	return !LooksLikeChannel(line) && !strings.HasPrefix(line, "-")
}

// LooksLikeChannel reports whether line carries a channel signal: a pipe,
// a #token, a type marker, or the word "voice" qualifying some other text.
// A line that is only the word "voice" is a heading, not a channel.
func LooksLikeChannel(line string) bool {
	switch {
	case strings.Contains(line, "|"):
		return true
	case hashSignalRe.MatchString(line):
		return true
	case typeRe.MatchString(line):
		return true
	case voiceWordRe.MatchString(line):
		rest := leadingMarkRe.ReplaceAllString(voiceWordRe.ReplaceAllString(line, ""), "")
		return strings.TrimSpace(rest) != ""
	}
	return false
}

func (p *Parser) addRole(st *state, line string) {
	if role, ok := p.buildRole(line); ok {
		st.tpl.Roles = append(st.tpl.Roles, role)
	}
}

func (p *Parser) buildRole(line string) (model.RoleSpec, bool) {
	m := colorRe.FindStringSubmatch(line)
	if m == nil {
		return model.RoleSpec{}, false
	}
	color, err := strconv.ParseInt(m[1], 16, 32)
	if err != nil {
		return model.RoleSpec{}, false
	}

	name := strings.Replace(line, m[0], "", 1)
	name = permissionsRe.ReplaceAllString(name, "")
	name = strings.ReplaceAll(name, "|", " ")
	name = strings.TrimSpace(spacesRe.ReplaceAllString(name, " "))
	if name == "" {
		return model.RoleSpec{}, false
	}

	return model.RoleSpec{
		RefID:       p.newRef(),
		Name:        model.Truncate(name, model.NameLimit),
		Color:       int(color),
		Mentionable: true,
		Permissions: perms.ToBitfield(extractPermissions(line)),
	}, true
}

func addCategory(st *state, line string) {
	st.tpl.Categories = append(st.tpl.Categories, model.Category{
		Name:     CategoryName(line),
		Channels: []model.ChannelSpec{},
	})
	st.current = len(st.tpl.Categories) - 1
}

func addChannel(st *state, line string) {
	cat := st.category()
	cat.Channels = append(cat.Channels, BuildChannel(line))
}

// CategoryName cleans a category heading.
func CategoryName(line string) string {
	name := Normalize(categoryMarkRe.ReplaceAllString(line, ""))
	name = strings.NewReplacer("|", " ", "#", " ").Replace(name)
	name = strings.TrimSpace(spacesRe.ReplaceAllString(name, " "))
	if name == "" {
		return model.DefaultCategoryName
	}
	return model.Truncate(name, model.NameLimit)
}

// BuildChannel decomposes a channel line.
func BuildChannel(line string) model.ChannelSpec {
	line = Normalize(line)
	isVoice := isVoiceLine(line)
	permList := extractPermissions(line)

	body := permissionsRe.ReplaceAllString(line, "")
	body = typeRe.ReplaceAllString(body, "")
	body = strings.TrimSpace(leadingMarkRe.ReplaceAllString(body, ""))

	var topic string
	if loc := topicRe.FindStringSubmatchIndex(body); loc != nil {
		topic = strings.TrimSpace(body[loc[2]:loc[3]])
		body = strings.TrimSpace(body[:loc[0]])
	}

	name := Slugify(channelName(body))
	if topic == "" {
		topic = SuggestTopic(name, isVoice)
	}

	ch := model.ChannelSpec{
		Name:  model.Truncate(name, model.NameLimit),
		Kind:  model.KindText,
		Topic: topic,
	}
	if isVoice {
		ch.Kind = model.KindVoice
	}
	if len(permList) > 0 {
		ch.Overwrites = []model.OverwriteSpec{{
			RoleRef: model.EveryoneRef,
			Allow:   perms.ToBitfield(permList),
		}}
	}
	return ch
}

func isVoiceLine(line string) bool {
	if m := typeRe.FindStringSubmatch(line); m != nil {
		return strings.EqualFold(m[1], "voice")
	}
	return voiceWordRe.MatchString(line)
}

// channelName picks the raw name out of a channel line body: the #token
// with any heading text before it, else the first pipe segment without
// the kind word, else the first word.
func channelName(body string) string {
	if loc := hashNameRe.FindStringSubmatchIndex(body); loc != nil {
		base := body[loc[2]:loc[3]]
		prefix := strings.TrimSpace(strings.ReplaceAll(body[:loc[0]], "|", " "))
		if prefix != "" {
			return prefix + "-" + base
		}
		return base
	}

	segment := strings.SplitN(body, "|", 2)[0]
	segment = strings.TrimPrefix(strings.TrimSpace(segment), "#")
	segment = strings.TrimSpace(voiceTokenRe.ReplaceAllString(segment, " "))
	if segment != "" {
		return segment
	}
	if fields := strings.Fields(body); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// Slugify lowercases text and joins its words with hyphens.
func Slugify(text string) string {
	s := strings.ReplaceAll(Normalize(text), "|", " ")
	s = spacesRe.ReplaceAllString(strings.TrimSpace(s), "-")
	s = strings.Trim(hyphensRe.ReplaceAllString(s, "-"), "-")
	if s == "" {
		return model.DefaultChannelName
	}
	return strings.ToLower(s)
}

// SuggestTopic returns a canned description keyed by the channel name.
func SuggestTopic(name string, isVoice bool) string {
	key := strings.ToLower(name)
	switch {
	case strings.Contains(key, "welcome"):
		return "Welcome channel with server info."
	case strings.Contains(key, "rules"):
		return "Server rules."
	case strings.Contains(key, "announce"), strings.Contains(key, "news"):
		return "Announcements."
	case strings.Contains(key, "chat"), strings.Contains(key, "general"):
		return "General chat."
	case strings.Contains(key, "support"):
		return "Support channel."
	case isVoice:
		return "A voice channel for talking."
	}
	return "Auto generated description."
}

func extractPermissions(line string) []string {
	m := permissionsRe.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	var out []string
	for _, p := range strings.Split(m[1], ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
