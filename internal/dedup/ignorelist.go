package dedup

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// IgnoreList is a load-once set of symbol prefixes. A symbol is ignored
// when any prefix matches the start of its canonical form.
type IgnoreList struct {
	prefixes []string
}

type ignoreFile struct {
	IgnoringTokens []string `json:"ignoring_tokens"`
}

// NewIgnoreList builds a list from explicit prefixes
func NewIgnoreList(prefixes []string) *IgnoreList {
	upper := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		upper = append(upper, strings.ToUpper(p))
	}
	return &IgnoreList{prefixes: upper}
}

// LoadIgnoreList reads {"ignoring_tokens": [...]} from path. A missing
// or unreadable file degrades to an empty list with a single warning.
func LoadIgnoreList(path string) *IgnoreList {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Ignore list unavailable, no symbols ignored")
		return NewIgnoreList(nil)
	}

	var file ignoreFile
	if err := json.Unmarshal(data, &file); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Ignore list malformed, no symbols ignored")
		return NewIgnoreList(nil)
	}

	list := NewIgnoreList(file.IgnoringTokens)
	log.Info().Int("prefixes", len(list.prefixes)).Str("path", path).Msg("Ignore list loaded")
	return list
}

// Ignored reports whether any configured prefix matches the symbol
func (l *IgnoreList) Ignored(symbol string) bool {
	s := strings.ToUpper(symbol)
	for _, p := range l.prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
