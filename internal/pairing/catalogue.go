package pairing

import (
	_ "embed"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/xiaot623/pairtalk/internal/domain"
)

//go:embed topics.toml
var builtinTopics string

// Catalogue is the topic list and document labels for one language.
type Catalogue struct {
	Language          string   `toml:"-"`
	TopicLabel        string   `toml:"topic_label"`
	ParticipantsLabel string   `toml:"participants_label"`
	Topics            []string `toml:"topics"`
}

// Topic returns the topic for pair position i. The list cycles, so more
// pairs than topics wrap around to the first topic again.
func (c Catalogue) Topic(i int) string {
	if len(c.Topics) == 0 || i < 0 {
		return ""
	}
	return c.Topics[i%len(c.Topics)]
}

// Catalogues maps a language code to its catalogue.
type Catalogues map[string]Catalogue

type catalogueFile struct {
	Languages map[string]Catalogue `toml:"languages"`
}

// DefaultCatalogues returns the built-in catalogues.
func DefaultCatalogues() Catalogues {
	cats, err := decodeCatalogues(builtinTopics)
	if err != nil {
		panic(fmt.Sprintf("builtin topics: %v", err))
	}
	return cats
}

// LoadCatalogues reads a TOML file and lays it over the built-in catalogues.
func LoadCatalogues(path string) (Catalogues, error) {
	cats := DefaultCatalogues()
	if path == "" {
		return cats, nil
	}
	var file catalogueFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	for lang, c := range file.Languages {
		if !domain.ValidLanguage(lang) {
			return nil, fmt.Errorf("%s: %w: %s", path, domain.ErrUnsupportedLanguage, lang)
		}
		base := cats[lang]
		if len(c.Topics) > 0 {
			base.Topics = c.Topics
		}
		if c.TopicLabel != "" {
			base.TopicLabel = c.TopicLabel
		}
		if c.ParticipantsLabel != "" {
			base.ParticipantsLabel = c.ParticipantsLabel
		}
		base.Language = lang
		cats[lang] = base
	}
	return cats, nil
}

func decodeCatalogues(data string) (Catalogues, error) {
	var file catalogueFile
	if _, err := toml.Decode(data, &file); err != nil {
		return nil, err
	}
	cats := make(Catalogues, len(file.Languages))
	for lang, c := range file.Languages {
		c.Language = lang
		cats[lang] = c
	}
	return cats, nil
}

// Get returns the catalogue for lang.
func (cs Catalogues) Get(lang string) (Catalogue, error) {
	c, ok := cs[lang]
	if !ok || len(c.Topics) == 0 {
		return Catalogue{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedLanguage, lang)
	}
	return c, nil
}
