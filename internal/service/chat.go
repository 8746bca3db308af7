package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/xiaot623/pairtalk/internal/domain"
	"github.com/xiaot623/pairtalk/internal/hub"
	"github.com/xiaot623/pairtalk/internal/policy"
)

// OpenSession starts a chat session for the participant called name.
func (s *Service) OpenSession(ctx context.Context, name string) (*domain.ChatSession, error) {
	name = strings.TrimSpace(name)
	if _, err := s.store.GetRoster(ctx); err != nil {
		return nil, errors.Wrap(err, "get roster")
	}
	pair, err := s.store.FindPairByParticipant(ctx, name)
	if err != nil {
		return nil, errors.Wrapf(err, "find pair of %q", name)
	}
	chars, err := s.transcripts.CharCount(pair.Key())
	if err != nil {
		return nil, errors.Wrap(err, "count transcript")
	}

	session := &domain.ChatSession{
		SessionID:         "chat_" + uuid.New().String()[:8],
		Participant:       name,
		Partner:           pair.Partner(name),
		Pair:              *pair,
		Topic:             pair.Topic,
		LastObservedChars: chars,
		CreatedAt:         s.now(),
	}
	s.sessions.add(session)
	log.Infof("session %s opened: %s in %s", session.SessionID, name, pair.Name())
	return session, nil
}

// Session returns an open session.
func (s *Service) Session(sessionID string) (*domain.ChatSession, error) {
	sess, err := s.sessions.get(sessionID)
	if err != nil {
		return nil, errors.Wrap(err, sessionID)
	}
	return &sess, nil
}

// CloseSession ends a session.
func (s *Service) CloseSession(sessionID string) error {
	if err := s.sessions.remove(sessionID); err != nil {
		return errors.Wrap(err, sessionID)
	}
	log.Infof("session %s closed", sessionID)
	return nil
}

// refreshPair re-reads the participant's pair so that regenerations and topic
// changes reach open sessions. Moving to another pair resets the volume baseline.
func (s *Service) refreshPair(ctx context.Context, sessionID string) (domain.ChatSession, error) {
	sess, err := s.sessions.get(sessionID)
	if err != nil {
		return sess, errors.Wrap(err, sessionID)
	}
	pair, err := s.store.FindPairByParticipant(ctx, sess.Participant)
	if err != nil {
		return sess, errors.Wrapf(err, "find pair of %q", sess.Participant)
	}
	if pair.PairID == sess.Pair.PairID && pair.Topic == sess.Topic {
		return sess, nil
	}

	var chars int
	moved := pair.Key() != sess.Pair.Key()
	if moved {
		if chars, err = s.transcripts.CharCount(pair.Key()); err != nil {
			return sess, errors.Wrap(err, "count transcript")
		}
	}
	return s.sessions.update(sessionID, func(cs *domain.ChatSession) {
		cs.Pair = *pair
		cs.Partner = pair.Partner(cs.Participant)
		cs.Topic = pair.Topic
		if moved {
			cs.LastObservedChars = chars
		}
	})
}

// SendMessage appends one line to the session's transcript. Messages over the
// word limit are rejected and nothing is written.
func (s *Service) SendMessage(ctx context.Context, sessionID, text string) (*domain.SendMessageResponse, error) {
	sess, err := s.refreshPair(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	decision, err := s.policyEngine.CheckMessage(ctx, text, settings.MaxWordsPerMessage)
	if err != nil {
		return nil, errors.Wrap(err, "check message")
	}
	switch decision {
	case policy.DecisionRejectEmpty:
		return nil, domain.ErrEmptyMessage
	case policy.DecisionRejectTooLong:
		return nil, errors.Wrapf(domain.ErrMessageTooLong, "%d words, limit is %d",
			policy.WordCount(text), settings.MaxWordsPerMessage)
	}

	key := sess.Pair.Key()
	line := domain.NewTranscriptLine(s.now(), sess.Participant, text)
	if err := s.transcripts.Append(key, line); err != nil {
		return nil, errors.Wrap(err, "append message")
	}
	s.hub.Publish(key, hub.EventTranscript)

	lines, err := s.transcripts.Lines(key)
	if err != nil {
		return nil, errors.Wrap(err, "read transcript")
	}
	return &domain.SendMessageResponse{Line: line, LineCount: len(lines)}, nil
}

// Render returns the viewer's projection of the transcript and updates the
// session's observed size. A volume warning is attached when more characters
// arrived since the previous render than the configured maximum.
func (s *Service) Render(ctx context.Context, sessionID string) (*domain.TranscriptView, error) {
	sess, err := s.refreshPair(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}

	key := sess.Pair.Key()
	raw, err := s.transcripts.Lines(key)
	if err != nil {
		return nil, errors.Wrap(err, "read transcript")
	}
	chars, err := s.transcripts.CharCount(key)
	if err != nil {
		return nil, errors.Wrap(err, "count transcript")
	}

	var previous int
	if _, err := s.sessions.update(sessionID, func(cs *domain.ChatSession) {
		previous = cs.LastObservedChars
		cs.LastObservedChars = chars
	}); err != nil {
		return nil, errors.Wrap(err, sessionID)
	}

	view := &domain.TranscriptView{
		SessionID:         sess.SessionID,
		PairID:            sess.Pair.PairID,
		PairName:          sess.Pair.Name(),
		Topic:             sess.Topic,
		Viewer:            sess.Participant,
		Partner:           sess.Partner,
		Lines:             domain.Project(raw, sess.Pair, sess.Participant),
		CharCount:         chars,
		RefreshIntervalMs: s.RefreshInterval().Milliseconds(),
	}

	added := chars - previous
	if added > 0 {
		exceeded, err := s.policyEngine.VolumeExceeded(ctx, added, settings.MaxCharsPerRefresh)
		if err != nil {
			return nil, errors.Wrap(err, "check volume")
		}
		if exceeded {
			view.Warnings = append(view.Warnings, domain.Warning{
				Code:    domain.WarningVolume,
				Message: fmt.Sprintf("%d characters arrived since the last refresh (limit %d)", added, settings.MaxCharsPerRefresh),
			})
		}
	}
	return view, nil
}

// WaitForUpdate blocks until the transcript has more than knownLines lines,
// a change is published for the pair, the refresh interval passes or ctx is
// done, and then renders.
func (s *Service) WaitForUpdate(ctx context.Context, sessionID string, knownLines int) (*domain.TranscriptView, error) {
	sess, err := s.refreshPair(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	key := sess.Pair.Key()

	sub := s.hub.Subscribe(key)
	defer s.hub.Unsubscribe(sub)

	lines, err := s.transcripts.Lines(key)
	if err != nil {
		return nil, errors.Wrap(err, "read transcript")
	}
	if len(lines) <= knownLines && sub != nil {
		timer := time.NewTimer(s.RefreshInterval())
		defer timer.Stop()
		select {
		case <-sub.C:
		case <-timer.C:
		case <-ctx.Done():
		}
	}
	return s.Render(context.WithoutCancel(ctx), sessionID)
}

// DeleteTranscript removes the whole transcript of a pair.
func (s *Service) DeleteTranscript(ctx context.Context, pairID string) error {
	pair, err := s.store.GetPair(ctx, pairID)
	if err != nil {
		return errors.Wrapf(err, "get pair %s", pairID)
	}
	if err := s.transcripts.Delete(pair.Key()); err != nil {
		return errors.Wrap(err, "delete transcript")
	}
	s.hub.Publish(pair.Key(), hub.EventTranscript)
	log.Infof("transcript of %s deleted", pair.Name())
	return nil
}

// ListTranscripts returns the keys of all stored transcripts.
func (s *Service) ListTranscripts() ([]string, error) {
	keys, err := s.transcripts.Keys()
	return keys, errors.Wrap(err, "list transcripts")
}

// NotifyTranscriptChanged publishes a change detected outside this process.
func (s *Service) NotifyTranscriptChanged(key string) {
	s.hub.Publish(key, hub.EventTranscript)
}

// AnnounceTranscriptChange publishes a change reported by another writer and
// reports whether any session is following the key.
func (s *Service) AnnounceTranscriptChange(key string) (bool, error) {
	if _, err := s.transcripts.Path(key); err != nil {
		return false, err
	}
	delivered := s.hub.SubscriberCount(key) > 0
	s.hub.Publish(key, hub.EventTranscript)
	return delivered, nil
}
