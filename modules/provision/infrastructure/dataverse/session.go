package dataverse

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/directory"
)

// Session holds one lazily built client per run. Commands share the session
// so repeated operations reuse the token transport; switching environments
// goes through Reset rather than mutating hidden global state.
type Session struct {
	mu     sync.Mutex
	opts   Options
	log    *logrus.Entry
	client *Client
}

// NewSession prepares a session without connecting.
func NewSession(opts Options, log *logrus.Entry) *Session {
	return &Session{opts: opts, log: log}
}

// Connect returns the shared client, building it on first use.
func (s *Session) Connect(ctx context.Context) (directory.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	client, err := New(ctx, s.opts, s.log)
	if err != nil {
		return nil, err
	}
	if s.log != nil {
		s.log.WithField("url", s.opts.BaseURL).Info("connected to directory")
	}
	s.client = client
	return client, nil
}

// Reset drops the cached client and retargets the session. The next Connect
// builds a fresh client against the new options.
func (s *Session) Reset(opts Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts = opts
	s.client = nil
}
