package notify

import (
	"strings"

	masker "github.com/goliatone/go-masker"
)

const maskRule = "preserveEnds(2,2)"

var secretFields = []string{
	"token", "tokens", "server_key", "serverKey", "authorization",
}

func init() {
	for _, field := range secretFields {
		masker.Default.RegisterMaskField(field, maskRule)
	}
}

// Mask hides the middle of a credential so it can be logged.
func Mask(value string) string {
	if value == "" {
		return ""
	}
	if masked, err := masker.Default.String(maskRule, value); err == nil {
		return masked
	}
	runes := []rune(value)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:2]) + strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-2:])
}

// MaskAll masks every value in values.
func MaskAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = Mask(v)
	}
	return out
}
