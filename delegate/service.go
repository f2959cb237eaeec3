package delegate

import (
	"context"
	"fmt"

	"github.com/doorward/doorward/internal/logutil"
)

type (
	// Service composes the remote client with the local profile mirror
	// and the session event fan-out.
	Service struct {
		client   *Client
		profiles *ProfileStore
		events   *Broadcaster
	}
)

func NewService(client *Client, profiles *ProfileStore) *Service {
	return &Service{
		client:   client,
		profiles: profiles,
		events:   NewBroadcaster(),
	}
}

func (s *Service) Events() *Broadcaster {
	return s.events
}

// SignUp creates the identity upstream and mirrors a profile row locally.
// A failed mirror write fails the whole signup: the upstream identity is
// not rolled back (the service offers no way to), instead the orphan is
// journaled so a reconcile pass can repair the local side later.
func (s *Service) SignUp(ctx context.Context, email, passwd, name string) (Session, error) {
	sess, err := s.client.SignUp(ctx, email, passwd, name)
	if err != nil {
		return Session{}, err
	}
	profile := Profile{ID: sess.User.ID, Email: sess.User.Email, Name: sess.User.Name}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		if jerr := s.profiles.Journal(ctx, profile); jerr != nil {
			logger := logutil.GetOrDefault(ctx)
			logger.Error().Err(jerr).
				Str("profile.id", profile.ID).
				Msg("Unable to journal orphaned profile, local mirror is now inconsistent")
		}
		return Session{}, fmt.Errorf("identity created upstream but mirror failed, cause %w", err)
	}
	s.events.Publish(Event{Kind: SignedIn, User: sess.User})
	return sess, nil
}

func (s *Service) SignIn(ctx context.Context, email, passwd string) (Session, error) {
	sess, err := s.client.SignIn(ctx, email, passwd)
	if err != nil {
		return Session{}, err
	}
	s.events.Publish(Event{Kind: SignedIn, User: sess.User})
	return sess, nil
}

func (s *Service) SignOut(ctx context.Context, accessToken string) error {
	if err := s.client.SignOut(ctx, accessToken); err != nil {
		return err
	}
	s.events.Publish(Event{Kind: SignedOut})
	return nil
}

func (s *Service) CurrentUser(ctx context.Context, accessToken string) (ExternalUser, error) {
	return s.client.CurrentUser(ctx, accessToken)
}

// Refresh exchanges a refresh token for a fresh session.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	sess, err := s.client.Refresh(ctx, refreshToken)
	if err != nil {
		return Session{}, err
	}
	s.events.Publish(Event{Kind: TokenRefreshed, User: sess.User})
	return sess, nil
}
