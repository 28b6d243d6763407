package locales

import (
	"strings"

	i18n "github.com/goliatone/go-i18n"
)

// DefaultLocale is used when a request carries no usable language tag.
const DefaultLocale = "en"

// Keys used by the offline page and crisis notifications.
const (
	KeyPageTitle      = "offline.page.title"
	KeyPageHeadline   = "offline.page.headline"
	KeyPageIntro      = "offline.page.intro"
	KeyPageCrisisLine = "offline.page.crisis_line"
	KeyPageTextLine   = "offline.page.text_line"
	KeyPageBreathing  = "offline.page.breathing"
	KeyPageBreathIn   = "offline.page.breathe_in"
	KeyPageBreathHold = "offline.page.breathe_hold"
	KeyPageBreathOut  = "offline.page.breathe_out"
	KeyPageReconnect  = "offline.page.reconnect"
	KeyNotifyTitle    = "offline.notify.title"
	KeyNotifyBody     = "offline.notify.body"
	KeyNotifyOpen     = "offline.notify.open_support"
	KeyNotifyDismiss  = "offline.notify.dismiss"
)

// Translations returns the catalog for the offline page and notifications.
func Translations() i18n.Translations {
	return i18n.Translations{
		"en": newCatalog("en", map[string]string{
			KeyPageTitle:      "Offline - InterpreLab Support",
			KeyPageHeadline:   "You're offline, but you're not alone",
			KeyPageIntro:      "Crisis support is still available while your connection is down.",
			KeyPageCrisisLine: "Call or text 988 for the Suicide & Crisis Lifeline",
			KeyPageTextLine:   "Text HOME to 741741 to reach the Crisis Text Line",
			KeyPageBreathing:  "Breathing exercise",
			KeyPageBreathIn:   "Breathe in slowly for 4 seconds",
			KeyPageBreathHold: "Hold your breath for 4 seconds",
			KeyPageBreathOut:  "Breathe out gently for 6 seconds",
			KeyPageReconnect:  "Try to reconnect",
			KeyNotifyTitle:    "InterpreLab Crisis Support",
			KeyNotifyBody:     "Crisis support is available. You are not alone.",
			KeyNotifyOpen:     "Open Support",
			KeyNotifyDismiss:  "Dismiss",
		}),
		"es": newCatalog("es", map[string]string{
			KeyPageTitle:      "Sin conexión - Apoyo InterpreLab",
			KeyPageHeadline:   "Estás sin conexión, pero no estás solo",
			KeyPageIntro:      "El apoyo en crisis sigue disponible mientras no tienes conexión.",
			KeyPageCrisisLine: "Llama o envía un mensaje al 988 para la Línea de Prevención del Suicidio y Crisis",
			KeyPageTextLine:   "Text HOME to 741741 para comunicarte con Crisis Text Line",
			KeyPageBreathing:  "Ejercicio de respiración",
			KeyPageBreathIn:   "Inhala lentamente durante 4 segundos",
			KeyPageBreathHold: "Mantén la respiración durante 4 segundos",
			KeyPageBreathOut:  "Exhala suavemente durante 6 segundos",
			KeyPageReconnect:  "Intentar reconectar",
			KeyNotifyTitle:    "Apoyo en crisis InterpreLab",
			KeyNotifyBody:     "El apoyo en crisis está disponible. No estás solo.",
			KeyNotifyOpen:     "Abrir apoyo",
			KeyNotifyDismiss:  "Descartar",
		}),
	}
}

func newCatalog(locale string, entries map[string]string) *i18n.TranslationCatalog {
	catalog := &i18n.TranslationCatalog{
		Locale:   i18n.Locale{Code: locale},
		Messages: make(map[string]i18n.Message),
	}
	for key, template := range entries {
		msg := i18n.Message{}
		msg.SetContent(template)
		catalog.Messages[key] = msg
	}
	return catalog
}

// NewTranslator builds a translator over Translations, falling back to
// defaultLocale for unknown locales.
func NewTranslator(defaultLocale string) (i18n.Translator, error) {
	if strings.TrimSpace(defaultLocale) == "" {
		defaultLocale = DefaultLocale
	}
	store := i18n.NewStaticStore(Translations())
	resolver := i18n.NewStaticFallbackResolver()
	resolver.Set("es", DefaultLocale)
	return i18n.NewSimpleTranslator(store,
		i18n.WithTranslatorDefaultLocale(defaultLocale),
		i18n.WithTranslatorFallbackResolver(resolver),
	)
}

// Text translates key, falling back to the default locale and finally to the
// key itself so callers always have something to show.
func Text(translator i18n.Translator, locale, key string) string {
	if translator == nil {
		return key
	}
	if out, err := translator.Translate(Normalize(locale), key); err == nil && out != "" {
		return out
	}
	if out, err := translator.Translate(DefaultLocale, key); err == nil && out != "" {
		return out
	}
	return key
}

// Normalize reduces an Accept-Language value or tag to a supported locale
// code, e.g. "es-MX,es;q=0.9" becomes "es".
func Normalize(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, ",;"); i >= 0 {
		tag = tag[:i]
	}
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	tag = strings.ToLower(strings.TrimSpace(tag))
	if _, ok := Translations()[tag]; ok {
		return tag
	}
	return DefaultLocale
}
