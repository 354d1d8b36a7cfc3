package doctree

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "TITLE", LevelTitle.String())
	assert.Equal(t, "H1", LevelH1.String())
	assert.Equal(t, "H2", LevelH2.String())
	assert.Equal(t, "H3", LevelH3.String())
	assert.Equal(t, "NONE", LevelNone.String())
}

func TestLevel_JSONRoundTrip(t *testing.T) {
	b, err := json.Marshal(struct {
		Level Level `json:"level"`
	}{LevelH2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"level":"H2"}`, string(b))

	var out struct {
		Level Level `json:"level"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"level":"h3"}`), &out))
	assert.Equal(t, LevelH3, out.Level)

	assert.Error(t, json.Unmarshal([]byte(`{"level":"H9"}`), &out))
}

func TestLevel_IsHeading(t *testing.T) {
	assert.False(t, LevelTitle.IsHeading())
	assert.False(t, LevelNone.IsHeading())
	assert.True(t, LevelH1.IsHeading())
	assert.True(t, LevelH3.IsHeading())
}

func TestTier_Contains(t *testing.T) {
	tier := Tier{Level: LevelH1, MinSize: 17.5, MaxSize: 18}
	assert.True(t, tier.Contains(18, 0))
	assert.True(t, tier.Contains(18.5, 0.05))
	assert.False(t, tier.Contains(14, 0.05))
}

func TestPersonaQuery_Text(t *testing.T) {
	q := PersonaQuery{Persona: "Investment Analyst", Job: "Analyze revenue trends"}
	assert.Equal(t, "Investment Analyst Analyze revenue trends", q.Text())
	assert.Equal(t, "only job", PersonaQuery{Job: "only job"}.Text())
}

func TestSection_WordCount(t *testing.T) {
	s := Section{Text: "one two  three\nfour"}
	assert.Equal(t, 4, s.WordCount())
}
