package gradio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFollowsLayout(t *testing.T) {
	args := JoinArgs{Prompt: "pasta", Language: "English", Model: "m", MaxTokens: 256, Temperature: 0.5}

	assert.Equal(t, []any{"pasta", "m", 256.0, 0.5}, args.encode(DefaultArgLayout))
	assert.Equal(t, []any{"pasta", "English", "m", 256.0, 0.5},
		args.encode([]ArgField{ArgPrompt, ArgLanguage, ArgModel, ArgMaxTokens, ArgTemperature}))
	assert.Equal(t, []any{"English", "pasta"}, args.encode([]ArgField{ArgLanguage, ArgPrompt}))
}

func TestParseArgLayout(t *testing.T) {
	layout, err := ParseArgLayout(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultArgLayout, layout)

	layout, err = ParseArgLayout([]string{"prompt", "language"})
	require.NoError(t, err)
	assert.Equal(t, []ArgField{ArgPrompt, ArgLanguage}, layout)

	_, err = ParseArgLayout([]string{"prompt", "seed"})
	assert.Error(t, err)

	_, err = ParseArgLayout([]string{"prompt", "prompt"})
	assert.Error(t, err)
}
