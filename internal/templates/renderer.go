package templates

import (
	"context"
	"fmt"
	"strings"
	"sync"

	i18n "github.com/goliatone/go-i18n"
	gotemplate "github.com/goliatone/go-template"
	"github.com/interprelab/go-offline-cache/pkg/locales"
)

// Renderer produces the localized offline document. Output is memoized per
// locale since the inputs never change for the life of the process.
type Renderer struct {
	engine        *gotemplate.Engine
	translator    i18n.Translator
	defaultLocale string
	page          string

	renderMu sync.Mutex
	mu       sync.RWMutex
	rendered map[string][]byte
}

type rendererOptions struct {
	defaultLocale string
	page          string
	engineOpts    []gotemplate.Option
}

// Option configures the renderer.
type Option func(*rendererOptions)

// WithDefaultLocale overrides the locale used when requests carry none.
func WithDefaultLocale(locale string) Option {
	return func(o *rendererOptions) {
		o.defaultLocale = locale
	}
}

// WithPage replaces the built-in offline document.
func WithPage(tpl string) Option {
	return func(o *rendererOptions) {
		if strings.TrimSpace(tpl) != "" {
			o.page = tpl
		}
	}
}

// WithRendererOptions forwards options directly to go-template's renderer.
func WithRendererOptions(opts ...gotemplate.Option) Option {
	return func(o *rendererOptions) {
		o.engineOpts = append(o.engineOpts, opts...)
	}
}

// New builds a renderer backed by go-template.
func New(translator i18n.Translator, opts ...Option) (*Renderer, error) {
	if translator == nil {
		return nil, ErrTranslatorRequired
	}
	settings := rendererOptions{
		defaultLocale: locales.DefaultLocale,
		page:          OfflinePage,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}

	engineOpts := append([]gotemplate.Option{gotemplate.WithBaseDir(".")}, settings.engineOpts...)
	engine, err := gotemplate.NewRenderer(engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRendererConfig, err)
	}

	return &Renderer{
		engine:        engine,
		translator:    translator,
		defaultLocale: locales.Normalize(settings.defaultLocale),
		page:          settings.page,
		rendered:      make(map[string][]byte),
	}, nil
}

// OfflinePage renders the document for locale (an Accept-Language value is
// accepted as-is).
func (r *Renderer) OfflinePage(ctx context.Context, locale string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r == nil || r.engine == nil {
		return nil, ErrRendererConfig
	}
	code := r.defaultLocale
	if strings.TrimSpace(locale) != "" {
		code = locales.Normalize(locale)
	}

	r.mu.RLock()
	cached, ok := r.rendered[code]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	r.renderMu.Lock()
	out, err := r.engine.RenderString(r.page, r.pageData(code))
	r.renderMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("templates: render offline page: %w", err)
	}

	body := []byte(out)
	r.mu.Lock()
	r.rendered[code] = body
	r.mu.Unlock()
	return body, nil
}

func (r *Renderer) pageData(locale string) map[string]any {
	text := func(key string) string {
		return locales.Text(r.translator, locale, key)
	}
	return map[string]any{
		"locale":      locale,
		"title":       text(locales.KeyPageTitle),
		"headline":    text(locales.KeyPageHeadline),
		"intro":       text(locales.KeyPageIntro),
		"crisis_line": text(locales.KeyPageCrisisLine),
		"text_line":   text(locales.KeyPageTextLine),
		"breathing":   text(locales.KeyPageBreathing),
		"steps": []string{
			text(locales.KeyPageBreathIn),
			text(locales.KeyPageBreathHold),
			text(locales.KeyPageBreathOut),
		},
		"reconnect": text(locales.KeyPageReconnect),
	}
}
