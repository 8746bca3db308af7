package pairing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/pairtalk/internal/domain"
)

func TestDefaultCatalogues(t *testing.T) {
	cats := DefaultCatalogues()
	for _, lang := range domain.Languages {
		c, err := cats.Get(string(lang))
		require.NoError(t, err, lang)
		assert.Len(t, c.Topics, 8)
		assert.NotEmpty(t, c.TopicLabel)
		assert.NotEmpty(t, c.ParticipantsLabel)
	}
	de, _ := cats.Get("de")
	assert.Equal(t, "Künstliche Intelligenz", de.Topics[5])
	assert.Equal(t, "Thema", de.TopicLabel)
}

func TestLoadCataloguesOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[languages.en]
topics = ["Cats", "Dogs"]
`), 0o644))

	cats, err := LoadCatalogues(path)
	require.NoError(t, err)
	en, err := cats.Get("en")
	require.NoError(t, err)
	assert.Equal(t, []string{"Cats", "Dogs"}, en.Topics)
	assert.Equal(t, "Topic", en.TopicLabel)
	assert.Equal(t, "Cats", en.Topic(2))

	de, err := cats.Get("de")
	require.NoError(t, err)
	assert.Len(t, de.Topics, 8)
}

func TestLoadCataloguesRejectsUnknownLanguage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.toml")
	require.NoError(t, os.WriteFile(path, []byte("[languages.it]\ntopics = [\"Pasta\"]\n"), 0o644))

	_, err := LoadCatalogues(path)
	assert.ErrorIs(t, err, domain.ErrUnsupportedLanguage)
}
