package identity

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// PromptProvider obtains an identity token by asking the user to paste
// one into the terminal. The "interactive flow" of a headless client:
// the user signs in with the provider elsewhere and hands the resulting
// token over. An empty line counts as cancelling the flow.
type PromptProvider struct {
	In  io.Reader
	Out io.Writer
	// TokenFile, when set, caches the last accepted token between runs.
	TokenFile string
}

// NewPromptProvider returns a provider reading from stdin and writing
// to stdout.
func NewPromptProvider(tokenFile string) *PromptProvider {
	return &PromptProvider{In: os.Stdin, Out: os.Stdout, TokenFile: tokenFile}
}

func (p *PromptProvider) SignIn(ctx context.Context) (*Credential, error) {
	fmt.Fprint(p.Out, "Paste your identity token (empty line to cancel): ")
	scanner := bufio.NewScanner(p.In)
	if !scanner.Scan() {
		return nil, NewError(KindCancelled, errors.New("input closed"))
	}
	if err := ctx.Err(); err != nil {
		return nil, NewError(KindCancelled, err)
	}
	token := strings.TrimSpace(scanner.Text())
	if token == "" {
		return nil, NewError(KindCancelled, errors.New("empty token"))
	}

	if p.TokenFile != "" {
		// Cache failures are not fatal; worst case is a re-prompt.
		_ = os.WriteFile(p.TokenFile, []byte(token), 0o600)
	}
	return &Credential{Token: token}, nil
}

func (p *PromptProvider) CachedCredential(ctx context.Context) (*Credential, error) {
	if p.TokenFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(p.TokenFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, NewError(KindUnexpected, err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return nil, nil
	}
	return &Credential{Token: token}, nil
}

func (p *PromptProvider) SignOut(ctx context.Context) error {
	if p.TokenFile == "" {
		return nil
	}
	if err := os.Remove(p.TokenFile); err != nil && !os.IsNotExist(err) {
		return NewError(KindUnexpected, err)
	}
	return nil
}
