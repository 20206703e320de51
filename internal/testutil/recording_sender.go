package testutil

import (
	"context"
	"sync"
)

// SentNotification is one recorded notification dispatch
type SentNotification struct {
	ClientID    string
	TemplateKey string
	Tags        map[string]string
}

// RecordingSender records notifications for assertions
type RecordingSender struct {
	mu   sync.Mutex
	sent []SentNotification
}

func NewRecordingSender() *RecordingSender {
	return &RecordingSender{}
}

func (s *RecordingSender) Send(ctx context.Context, clientID, templateKey string, tags map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, SentNotification{
		ClientID:    clientID,
		TemplateKey: templateKey,
		Tags:        tags,
	})
	return nil
}

// Sent returns a copy of the recorded notifications
func (s *RecordingSender) Sent() []SentNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentNotification, len(s.sent))
	copy(out, s.sent)
	return out
}

// CountByTemplate counts recorded notifications for one template
func (s *RecordingSender) CountByTemplate(templateKey string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.sent {
		if n.TemplateKey == templateKey {
			count++
		}
	}
	return count
}

// Reset clears the recorded notifications
func (s *RecordingSender) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = nil
}
