package identity

import (
	"bytes"
	"context"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestClassify_KeepsExistingKind(t *testing.T) {
	err := NewError(KindBlocked, errors.New("popup blocked"))
	if got := Classify(err); got != KindBlocked {
		t.Errorf("Classify = %v; want KindBlocked", got)
	}
}

func TestClassify_ContextCanceled(t *testing.T) {
	if got := Classify(context.Canceled); got != KindCancelled {
		t.Errorf("Classify = %v; want KindCancelled", got)
	}
}

func TestClassify_NetError(t *testing.T) {
	var err error = &net.OpError{Op: "dial", Err: errors.New("refused")}
	if got := Classify(err); got != KindNetwork {
		t.Errorf("Classify = %v; want KindNetwork", got)
	}
}

func TestClassify_Unknown(t *testing.T) {
	if got := Classify(errors.New("weird")); got != KindUnexpected {
		t.Errorf("Classify = %v; want KindUnexpected", got)
	}
}

func TestErrorKind_String(t *testing.T) {
	cases := map[ErrorKind]string{
		KindCancelled:  "cancelled",
		KindBlocked:    "blocked",
		KindNetwork:    "network",
		KindRejected:   "rejected",
		KindUnexpected: "unexpected",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("%d.String() = %q; want %q", kind, got, want)
		}
	}
}

func TestPromptProvider_SignIn(t *testing.T) {
	var out bytes.Buffer
	p := &PromptProvider{In: strings.NewReader("my-identity-token\n"), Out: &out}

	cred, err := p.SignIn(context.Background())
	if err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}
	if cred.Token != "my-identity-token" {
		t.Errorf("token = %q; want my-identity-token", cred.Token)
	}
	if !strings.Contains(out.String(), "identity token") {
		t.Errorf("prompt output = %q; want a token prompt", out.String())
	}
}

func TestPromptProvider_EmptyLineCancels(t *testing.T) {
	p := &PromptProvider{In: strings.NewReader("\n"), Out: &bytes.Buffer{}}

	_, err := p.SignIn(context.Background())
	if Classify(err) != KindCancelled {
		t.Fatalf("SignIn error = %v; want KindCancelled", err)
	}
}

func TestPromptProvider_ClosedInputCancels(t *testing.T) {
	p := &PromptProvider{In: strings.NewReader(""), Out: &bytes.Buffer{}}

	_, err := p.SignIn(context.Background())
	if Classify(err) != KindCancelled {
		t.Fatalf("SignIn error = %v; want KindCancelled", err)
	}
}

func TestPromptProvider_TokenFileRoundTrip(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "token")
	p := &PromptProvider{
		In:        strings.NewReader("cached-token\n"),
		Out:       &bytes.Buffer{},
		TokenFile: tokenFile,
	}

	if _, err := p.SignIn(context.Background()); err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}

	cred, err := p.CachedCredential(context.Background())
	if err != nil {
		t.Fatalf("CachedCredential returned error: %v", err)
	}
	if cred == nil || cred.Token != "cached-token" {
		t.Errorf("cached credential = %+v; want cached-token", cred)
	}

	if err := p.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut returned error: %v", err)
	}
	cred, err = p.CachedCredential(context.Background())
	if err != nil {
		t.Fatalf("CachedCredential after sign-out returned error: %v", err)
	}
	if cred != nil {
		t.Errorf("cached credential after sign-out = %+v; want nil", cred)
	}
}

func TestPromptProvider_NoTokenFile(t *testing.T) {
	p := &PromptProvider{In: strings.NewReader(""), Out: &bytes.Buffer{}}
	cred, err := p.CachedCredential(context.Background())
	if err != nil || cred != nil {
		t.Errorf("CachedCredential = %+v, %v; want nil, nil", cred, err)
	}
	if err := p.SignOut(context.Background()); err != nil {
		t.Errorf("SignOut returned error: %v", err)
	}
}

func TestPromptProvider_ContextAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	p := &PromptProvider{In: strings.NewReader("tok\n"), Out: &bytes.Buffer{}}
	_, err := p.SignIn(ctx)
	if Classify(err) != KindCancelled {
		t.Fatalf("SignIn error = %v; want KindCancelled", err)
	}
}
