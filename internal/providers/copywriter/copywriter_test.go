package copywriter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type stubModels struct {
	text    string
	err     error
	prompts []string
}

func (s *stubModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.prompts = append(s.prompts, contents[0].Parts[0].Text)
	if s.err != nil {
		return nil, s.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: s.text}}}}},
	}, nil
}

func TestStaticCopywriterTitlesName(t *testing.T) {
	draft, err := NewStaticCopywriter().Draft(context.Background(), Request{
		ProductTitle: "unisex tee",
		Color:        "black",
		Hint:         "sunset waves",
		Placements:   []string{"front", "back"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Sunset Waves Unisex Tee (Black)", draft.Name)
	assert.Contains(t, draft.Description, "front, back")
	assert.Equal(t, staticProviderName, draft.Provider)
}

func TestStaticCopywriterIndonesian(t *testing.T) {
	draft, err := NewStaticCopywriter().Draft(context.Background(), Request{Locale: "id-ID"})
	require.NoError(t, err)
	assert.Equal(t, "Desain Orisinal Produk", draft.Name)
	assert.True(t, strings.HasSuffix(draft.Description, "dicetak sesuai pesanan."))
}

func TestGeminiCopywriterParsesJSON(t *testing.T) {
	models := &stubModels{text: `{"name":"  Sunset Tee ","description":"Warm tones."}`}
	cw := newGeminiCopywriter(models, GeminiOptions{})

	draft, err := cw.Draft(context.Background(), Request{ProductTitle: "Tee", Locale: "en"})
	require.NoError(t, err)
	assert.Equal(t, Draft{Name: "Sunset Tee", Description: "Warm tones.", Provider: geminiProviderName}, draft)
	assert.Contains(t, models.prompts[0], "Product: Tee")
}

func TestGeminiCopywriterFallsBack(t *testing.T) {
	cases := []struct {
		name   string
		models *stubModels
	}{
		{"api error", &stubModels{err: errors.New("quota")}},
		{"not json", &stubModels{text: "Sunset Tee"}},
		{"no name", &stubModels{text: `{"description":"x"}`}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			draft, err := newGeminiCopywriter(tc.models, GeminiOptions{}).Draft(context.Background(), Request{ProductTitle: "Tee"})
			require.NoError(t, err)
			assert.Equal(t, staticProviderName, draft.Provider)
		})
	}
}

func TestGeminiCopywriterTruncatesNameByRune(t *testing.T) {
	long := strings.Repeat("é", maxNameRunes+5)
	models := &stubModels{text: `{"name":"` + long + `","description":"x"}`}

	draft, err := newGeminiCopywriter(models, GeminiOptions{}).Draft(context.Background(), Request{ProductTitle: "Tee"})
	require.NoError(t, err)
	assert.Equal(t, geminiProviderName, draft.Provider)
	assert.True(t, utf8.ValidString(draft.Name))
	assert.Equal(t, maxNameRunes, utf8.RuneCountInString(draft.Name))
}
