package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentchat/pkg/models"
)

func TestCatalogResolve(t *testing.T) {
	catalog := DefaultCatalog()

	cfg, err := catalog.Resolve("gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.ModelName)

	_, err = catalog.Resolve("claude-nonexistent")
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestCatalogHasAndIDs(t *testing.T) {
	catalog := NewCatalog(map[string]ModelConfig{
		"b-model": {DisplayName: "B"},
		"a-model": {DisplayName: "A"},
	})

	assert.True(t, catalog.Has("a-model"))
	assert.False(t, catalog.Has("c-model"))
	assert.Equal(t, []string{"a-model", "b-model"}, catalog.IDs())
}

func TestCatalogAllReturnsCopy(t *testing.T) {
	catalog := NewCatalog(map[string]ModelConfig{"m": {DisplayName: "M"}})

	all := catalog.All()
	all["m"] = ModelConfig{DisplayName: "tampered"}
	delete(all, "m")

	cfg, err := catalog.Resolve("m")
	require.NoError(t, err)
	assert.Equal(t, "M", cfg.DisplayName)
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Tea Versus Coffee", "Tea Versus Coffee"},
		{"surrounding whitespace", "  Morning Chat \n", "Morning Chat"},
		{"double quotes", `"Quoted Title"`, "Quoted Title"},
		{"single quotes", "'Quoted Title'", "Quoted Title"},
		{"quotes inside stay", `The "Best" Plan`, `The "Best" Plan`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeTitle(tc.in))
		})
	}
}

func TestNormalizeTitleCapsLength(t *testing.T) {
	long := strings.Repeat("a", 150)
	assert.Len(t, NormalizeTitle(long), 100)

	// Multi-byte runes are not split mid-character.
	multi := strings.Repeat("日", 150)
	got := NormalizeTitle(multi)
	assert.Equal(t, 100, len([]rune(got)))
	assert.Equal(t, strings.Repeat("日", 100), got)
}

func TestBuildTitlePrompt(t *testing.T) {
	prompt := BuildTitlePrompt([]Turn{
		{Role: models.RoleHuman, Content: "Is tea better than coffee?"},
		{Role: models.RoleAI, Content: "It depends on the drinker."},
	})

	assert.Contains(t, prompt, "maximum 6 words")
	assert.Contains(t, prompt, "User: Is tea better than coffee?")
	assert.Contains(t, prompt, "Assistant: It depends on the drinker.")
}

func TestBuildTitlePromptTruncatesLongTurns(t *testing.T) {
	long := strings.Repeat("x", 500)
	prompt := BuildTitlePrompt([]Turn{{Role: models.RoleHuman, Content: long}})

	assert.Contains(t, prompt, strings.Repeat("x", 200)+"...")
	assert.NotContains(t, prompt, strings.Repeat("x", 201))
}

func TestBuildMessagesPrefixesSystemPrompt(t *testing.T) {
	messages := buildMessages("You are terse", []Turn{
		{Role: models.RoleHuman, Content: "hi"},
		{Role: models.RoleAI, Content: "hello"},
	})

	require.Len(t, messages, 3)
}

func TestBuildMessagesWithoutSystemPrompt(t *testing.T) {
	messages := buildMessages("", []Turn{{Role: models.RoleHuman, Content: "hi"}})
	require.Len(t, messages, 1)
}
