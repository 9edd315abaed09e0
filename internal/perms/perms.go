// Package perms maps free-text permission phrases onto the platform's
// permission bitfield.
package perms

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Bitfield is a set of permission bits.
type Bitfield uint64

// MarshalJSON writes b as a decimal string, since bitfields can exceed
// what JSON numbers carry exactly.
func (b Bitfield) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatUint(uint64(b), 10))), nil
}

// UnmarshalJSON accepts a bare or quoted non-negative integer.
func (b *Bitfield) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid permission bitfield %s", data)
	}
	*b = Bitfield(n)
	return nil
}

// Has reports whether every bit in other is set in b.
func (b Bitfield) Has(other Bitfield) bool {
	return b&other == other
}

// Platform permission bits, named the way the vocabulary table refers to them.
const (
	CreateInstantInvite    Bitfield = 1 << 0
	KickMembers            Bitfield = 1 << 1
	BanMembers             Bitfield = 1 << 2
	Administrator          Bitfield = 1 << 3
	ManageChannels         Bitfield = 1 << 4
	ManageGuild            Bitfield = 1 << 5
	AddReactions           Bitfield = 1 << 6
	ViewAuditLog           Bitfield = 1 << 7
	PrioritySpeaker        Bitfield = 1 << 8
	Stream                 Bitfield = 1 << 9
	ViewChannel            Bitfield = 1 << 10
	SendMessages           Bitfield = 1 << 11
	SendTTSMessages        Bitfield = 1 << 12
	ManageMessages         Bitfield = 1 << 13
	EmbedLinks             Bitfield = 1 << 14
	AttachFiles            Bitfield = 1 << 15
	ReadMessageHistory     Bitfield = 1 << 16
	MentionEveryone        Bitfield = 1 << 17
	UseExternalEmojis      Bitfield = 1 << 18
	ViewGuildInsights      Bitfield = 1 << 19
	Connect                Bitfield = 1 << 20
	Speak                  Bitfield = 1 << 21
	MuteMembers            Bitfield = 1 << 22
	DeafenMembers          Bitfield = 1 << 23
	MoveMembers            Bitfield = 1 << 24
	UseVoiceActivation     Bitfield = 1 << 25
	ChangeNickname         Bitfield = 1 << 26
	ManageNicknames        Bitfield = 1 << 27
	ManageRoles            Bitfield = 1 << 28
	ManageWebhooks         Bitfield = 1 << 29
	ManageEmojis           Bitfield = 1 << 30
	UseApplicationCommands Bitfield = 1 << 31
	RequestToSpeak         Bitfield = 1 << 32
	ManageEvents           Bitfield = 1 << 33
	ManageThreads          Bitfield = 1 << 34
	UseExternalStickers    Bitfield = 1 << 37
	ModerateMembers        Bitfield = 1 << 40
)

// bitNames holds the canonical name of every bit the vocabulary can produce.
var bitNames = map[string]Bitfield{
	"administrator":            Administrator,
	"manage_roles":             ManageRoles,
	"manage_channels":          ManageChannels,
	"manage_webhooks":          ManageWebhooks,
	"manage_emojis":            ManageEmojis,
	"ban_members":              BanMembers,
	"kick_members":             KickMembers,
	"view_audit_log":           ViewAuditLog,
	"manage_messages":          ManageMessages,
	"manage_threads":           ManageThreads,
	"mention_everyone":         MentionEveryone,
	"moderate_members":         ModerateMembers,
	"priority_speaker":         PrioritySpeaker,
	"send_messages":            SendMessages,
	"read_message_history":     ReadMessageHistory,
	"view_channel":             ViewChannel,
	"connect":                  Connect,
	"speak":                    Speak,
	"stream":                   Stream,
	"use_voice_activation":     UseVoiceActivation,
	"embed_links":              EmbedLinks,
	"attach_files":             AttachFiles,
	"use_external_emojis":      UseExternalEmojis,
	"use_external_stickers":    UseExternalStickers,
	"use_application_commands": UseApplicationCommands,
	"add_reactions":            AddReactions,
	"manage_events":            ManageEvents,
	"change_nickname":          ChangeNickname,
	"move_members":             MoveMembers,
}

// vocabulary maps a normalized human phrase to a canonical bit name.
// Several phrases are synonyms for the same bit.
var vocabulary = map[string]string{
	"administrator":              "administrator",
	"manage server":              "administrator",
	"manage roles":               "manage_roles",
	"manage channels":            "manage_channels",
	"manage webhooks":            "manage_webhooks",
	"manage emojis":              "manage_emojis",
	"manage emojis and stickers": "manage_emojis",
	"ban members":                "ban_members",
	"kick members":               "kick_members",
	"view audit log":             "view_audit_log",
	"manage messages":            "manage_messages",
	"manage threads":             "manage_threads",
	"mention everyone":           "mention_everyone",
	"timeout members":            "moderate_members",
	"moderate members":           "moderate_members",
	"mute members":               "moderate_members",
	"priority speaker":           "priority_speaker",
	"send messages":              "send_messages",
	"read message history":       "read_message_history",
	"view channel":               "view_channel",
	"read channels":              "view_channel",
	"connect":                    "connect",
	"speak":                      "speak",
	"stream":                     "stream",
	"use voice activity":         "use_voice_activation",
	"embed links":                "embed_links",
	"attach files":               "attach_files",
	"use external emojis":        "use_external_emojis",
	"use external stickers":      "use_external_stickers",
	"use application commands":   "use_application_commands",
	"add reactions":              "add_reactions",
	"manage events":              "manage_events",
	"change nickname":            "change_nickname",
	"move members":               "move_members",
}

var parenthetical = regexp.MustCompile(`\(.*?\)`)

// Normalize strips parenthetical annotations, lowercases and trims a phrase.
func Normalize(phrase string) string {
	return strings.ToLower(strings.TrimSpace(parenthetical.ReplaceAllString(phrase, "")))
}

// Lookup returns the canonical bit name for phrase, or false when the
// phrase is not part of the vocabulary.
func Lookup(phrase string) (string, bool) {
	name, ok := vocabulary[Normalize(phrase)]
	return name, ok
}

// Bit returns the bit for a canonical name.
func Bit(name string) (Bitfield, bool) {
	b, ok := bitNames[name]
	return b, ok
}

// ToBitfield ORs together the bits of every recognized phrase.
// Unrecognized phrases are ignored.
func ToBitfield(phrases []string) Bitfield {
	var bits Bitfield
	for _, p := range phrases {
		name, ok := Lookup(p)
		if !ok {
			continue
		}
		bits |= bitNames[name]
	}
	return bits
}

// Names returns the canonical names of the vocabulary bits set in b, sorted.
// Bits outside the vocabulary are not reported.
func Names(b Bitfield) []string {
	var names []string
	for name, bit := range bitNames {
		if b.Has(bit) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Phrases returns every phrase the vocabulary recognizes, sorted.
func Phrases() []string {
	out := make([]string, 0, len(vocabulary))
	for p := range vocabulary {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
