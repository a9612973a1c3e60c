package career

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-chat/internal/llm"
)

type captureLLM struct {
	got []llm.Message
	err error
}

func (c *captureLLM) Generate(ctx context.Context, msgs []llm.Message) (llm.Response, error) {
	c.got = msgs
	if c.err != nil {
		return llm.Response{}, c.err
	}
	return llm.Response{Content: "1. Data scientist"}, nil
}

func TestSuggest(t *testing.T) {
	c := &captureLLM{}
	out, err := NewCounselor(c).Suggest(context.Background(), Profile{
		Name:      " Ada ",
		Interests: "drawing and math",
	})
	require.NoError(t, err)
	assert.Equal(t, "1. Data scientist", out)

	require.Len(t, c.got, 1)
	assert.Equal(t, llm.RoleUser, c.got[0].Role)
	assert.Contains(t, c.got[0].Content, "Name: Ada\n")
	assert.Contains(t, c.got[0].Content, "Interests: drawing and math")
}

func TestSuggest_EmptyProfile(t *testing.T) {
	c := &captureLLM{}
	_, err := NewCounselor(c).Suggest(context.Background(), Profile{Skills: "  "})
	assert.ErrorIs(t, err, ErrEmptyProfile)
	assert.Nil(t, c.got)
}

func TestSuggest_UpstreamError(t *testing.T) {
	c := &captureLLM{err: &llm.UpstreamError{Err: errors.New("quota")}}
	_, err := NewCounselor(c).Suggest(context.Background(), Profile{Name: "x"})
	var ue *llm.UpstreamError
	assert.True(t, errors.As(err, &ue))
}
