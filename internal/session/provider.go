// Package session holds the signed-in account for the admin CLI. The
// session is resolved once by Init and shared by every command until Close.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/directory"
)

// ErrNoSession is returned when nobody is signed in.
var ErrNoSession = errors.New("not signed in; run `adminctl login`")

// Remote is the part of the API the provider talks to; *directory.Client satisfies it.
type Remote interface {
	Session(ctx context.Context) (*directory.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*directory.Tokens, error)
	Logout(ctx context.Context, refreshToken string) error
	SetToken(token string)
	SetUserID(id string)
}

// Provider caches the current session.
type Provider struct {
	mu      sync.Mutex
	store   *Store
	remote  Remote
	token   *Token
	current *directory.Session
	now     func() time.Time
}

func NewProvider(store *Store, remote Remote) *Provider {
	return &Provider{store: store, remote: remote, now: time.Now}
}

// SignIn persists freshly issued tokens and resolves the session.
func (p *Provider) SignIn(ctx context.Context, toks *directory.Tokens) error {
	p.mu.Lock()
	p.token = nil
	p.current = nil
	p.mu.Unlock()
	if err := p.store.Save(p.tokenFrom(toks)); err != nil {
		return err
	}
	return p.Init(ctx)
}

func (p *Provider) tokenFrom(toks *directory.Tokens) Token {
	return Token{
		AccessToken:  toks.AccessToken,
		RefreshToken: toks.RefreshToken,
		ExpiresAt:    p.now().Add(time.Duration(toks.ExpiresIn) * time.Second),
	}
}

// Init loads the stored token and queries the session once. Later calls
// return without touching the network.
func (p *Provider) Init(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		return nil
	}
	tok, err := p.store.Load()
	if err != nil {
		return err
	}
	if !tok.ExpiresAt.IsZero() && tok.ExpiresAt.Before(p.now()) {
		if tok, err = p.refresh(ctx, tok); err != nil {
			return err
		}
	}
	p.remote.SetToken(tok.AccessToken)
	s, err := p.remote.Session(ctx)
	if isUnauthorized(err) && tok.RefreshToken != "" {
		if tok, err = p.refresh(ctx, tok); err != nil {
			return err
		}
		p.remote.SetToken(tok.AccessToken)
		s, err = p.remote.Session(ctx)
	}
	if err != nil {
		if isUnauthorized(err) {
			return ErrNoSession
		}
		return err
	}
	if s.User != nil {
		p.remote.SetUserID(s.User.ID)
	}
	p.token = tok
	p.current = s
	return nil
}

func (p *Provider) refresh(ctx context.Context, tok *Token) (*Token, error) {
	if tok.RefreshToken == "" {
		return nil, ErrNoSession
	}
	toks, err := p.remote.Refresh(ctx, tok.RefreshToken)
	if err != nil {
		if isUnauthorized(err) {
			_ = p.store.Clear()
			return nil, ErrNoSession
		}
		return nil, err
	}
	next := p.tokenFrom(toks)
	next.APIURL = tok.APIURL
	if err := p.store.Save(next); err != nil {
		return nil, err
	}
	return &next, nil
}

// Current returns the cached session.
func (p *Provider) Current() (*directory.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil, ErrNoSession
	}
	return p.current, nil
}

// IsSuperUser reports whether the signed-in profile may list users.
func (p *Provider) IsSuperUser() bool {
	s, err := p.Current()
	return err == nil && s.Profile != nil && s.Profile.IsSuperUser()
}

// Close revokes the refresh token and forgets the session locally. The local
// file is removed even when revocation fails.
func (p *Provider) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	tok := p.token
	if tok == nil {
		loaded, err := p.store.Load()
		if err != nil && !errors.Is(err, ErrNoSession) {
			return err
		}
		tok = loaded
	}
	var revokeErr error
	if tok != nil && tok.RefreshToken != "" {
		revokeErr = p.remote.Logout(ctx, tok.RefreshToken)
	}
	p.token = nil
	p.current = nil
	p.remote.SetToken("")
	if err := p.store.Clear(); err != nil {
		return err
	}
	return revokeErr
}

func isUnauthorized(err error) bool {
	var apiErr *directory.APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}
