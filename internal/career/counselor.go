// Package career produces one-shot career path suggestions from a short background profile.
package career

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"career-chat/internal/llm"
	"career-chat/internal/prompts"
)

var ErrEmptyProfile = errors.New("career: empty profile")

type Profile struct {
	Name      string `json:"name"`
	Interests string `json:"interests"`
	Skills    string `json:"skills"`
	Education string `json:"education"`
}

func (p Profile) trimmed() Profile {
	return Profile{
		Name:      strings.TrimSpace(p.Name),
		Interests: strings.TrimSpace(p.Interests),
		Skills:    strings.TrimSpace(p.Skills),
		Education: strings.TrimSpace(p.Education),
	}
}

func (p Profile) empty() bool {
	return p.Name == "" && p.Interests == "" && p.Skills == "" && p.Education == ""
}

type Counselor struct {
	client llm.Client
}

func NewCounselor(client llm.Client) *Counselor {
	return &Counselor{client: client}
}

// Suggest asks the model for 3-5 career paths that fit p. Nothing is remembered between calls.
func (c *Counselor) Suggest(ctx context.Context, p Profile) (string, error) {
	p = p.trimmed()
	if p.empty() {
		return "", ErrEmptyProfile
	}

	prompt, err := prompts.RenderCareer(prompts.CareerData(p))
	if err != nil {
		return "", fmt.Errorf("render career prompt: %w", err)
	}

	resp, err := c.client.Generate(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		return "", fmt.Errorf("generate suggestions: %w", err)
	}
	return resp.Content, nil
}
