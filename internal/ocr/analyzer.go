package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/rcliao/layoutkit/internal/model"
)

// Fallback reasons reported in the starter template summary.
const (
	ReasonNoRecognizer = "Missing OCR dependencies"
	ReasonNoCategories = "No categories found"
)

const (
	defaultMaxBytes = 8 << 20
	maxCategoryLen  = 80
)

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithHTTPClient sets the client used to download images.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Analyzer) { a.client = c }
}

// WithMaxBytes caps the downloaded image size.
func WithMaxBytes(n int64) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxBytes = n
		}
	}
}

// WithLogger sets the analyzer logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Analyzer) { a.log = l }
}

// Analyzer builds templates from screenshots of a channel list.
type Analyzer struct {
	rec      Recognizer
	client   *http.Client
	maxBytes int64
	log      zerolog.Logger
}

// NewAnalyzer returns an Analyzer. A nil rec makes every call fall back
// to the starter template.
func NewAnalyzer(rec Recognizer, opts ...Option) *Analyzer {
	a := &Analyzer{
		rec:      rec,
		client:   &http.Client{Timeout: 15 * time.Second},
		maxBytes: defaultMaxBytes,
		log:      zerolog.Nop(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Analyze downloads the image at url, recognizes its text and builds a
// template from it. It never fails: any problem yields model.Starter with
// the reason in the summary.
func (a *Analyzer) Analyze(ctx context.Context, url string) model.Template {
	if a.rec == nil {
		return model.Starter(ReasonNoRecognizer)
	}

	img, err := a.fetch(ctx, url)
	if err != nil {
		a.log.Warn().Err(err).Str("url", url).Msg("image fetch failed")
		return model.Starter(err.Error())
	}

	text, err := a.rec.Recognize(ctx, img)
	if err != nil {
		a.log.Warn().Err(err).Str("url", url).Msg("recognition failed")
		return model.Starter(err.Error())
	}

	t, ok := FromText(text)
	if !ok {
		return model.Starter(ReasonNoCategories)
	}
	a.log.Info().Str("summary", t.Summary).Msg("screenshot analyzed")
	return t
}

func (a *Analyzer) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("bad image url: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, a.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > a.maxBytes {
		return nil, fmt.Errorf("image larger than %d bytes", a.maxBytes)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return data, nil
}

// FromText builds a template from recognized screenshot text. It reports
// false when no category could be found.
func FromText(raw string) (model.Template, bool) {
	t := model.Template{Categories: []model.Category{}, Roles: []model.RoleSpec{}}
	current := -1

	for _, line := range strings.Split(raw, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}

		if looksLikeCategory(line) {
			t.Categories = append(t.Categories, model.Category{Name: normalizeName(line), Channels: []model.ChannelSpec{}})
			current = len(t.Categories) - 1
			continue
		}
		if !looksLikeChannel(line) {
			continue
		}
		if current < 0 {
			t.Categories = append(t.Categories, model.Category{Name: "general", Channels: []model.ChannelSpec{}})
			current = len(t.Categories) - 1
		}
		t.Categories[current].Channels = append(t.Categories[current].Channels, parseChannel(line))
	}

	if len(t.Categories) == 0 {
		return t, false
	}
	t.Summary = model.Summarize(t) + " (OCR)"
	return t, true
}

func looksLikeChannel(line string) bool {
	lower := strings.ToLower(line)
	return strings.HasPrefix(lower, "#") ||
		strings.Contains(lower, " #") ||
		strings.Contains(lower, "voice") ||
		strings.HasPrefix(lower, "- #")
}

func looksLikeCategory(line string) bool {
	return !looksLikeChannel(line) && utf8.RuneCountInString(line) < maxCategoryLen
}

func parseChannel(line string) model.ChannelSpec {
	isVoice := strings.Contains(strings.ToLower(line), "voice")
	name := normalizeName(strings.TrimLeft(line, "- #"))
	ch := model.ChannelSpec{
		Name:  name,
		Kind:  model.KindText,
		Topic: suggestTopic(name, isVoice),
	}
	if isVoice {
		ch.Kind = model.KindVoice
	}
	return ch
}

// normalizeName lowercases text and joins its words with dashes.
func normalizeName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return model.DefaultChannelName
	}
	return model.Truncate(strings.ToLower(strings.Join(fields, "-")), model.NameLimit)
}

func suggestTopic(name string, isVoice bool) string {
	switch {
	case strings.Contains(name, "welcome"):
		return "Welcome channel with info."
	case strings.Contains(name, "rules"):
		return "Server rules."
	case strings.Contains(name, "announce"):
		return "Announcements."
	case isVoice:
		return "Simple voice channel."
	}
	return "Auto description from OCR."
}
