package app

import (
	"errors"
	"io"

	"videosum/internal/storage"
	"videosum/pkg/config"
	"videosum/pkg/prompts"
)

type Service struct {
	cfg      *config.Config
	pipeline *Pipeline
	store    storage.ObjectStore
	catalog  *prompts.Catalog
	closers  []io.Closer
}

type ServiceOptions struct {
	Config   *config.Config
	Pipeline *Pipeline
	Store    storage.ObjectStore
	Catalog  *prompts.Catalog
	Closers  []io.Closer
}

func NewService(opts ServiceOptions) *Service {
	return &Service{
		cfg:      opts.Config,
		pipeline: opts.Pipeline,
		store:    opts.Store,
		catalog:  opts.Catalog,
		closers:  opts.Closers,
	}
}

func (s *Service) Config() *config.Config     { return s.cfg }
func (s *Service) Pipeline() *Pipeline        { return s.pipeline }
func (s *Service) Store() storage.ObjectStore { return s.store }
func (s *Service) Catalog() *prompts.Catalog  { return s.catalog }

// Close releases client handles in reverse order of creation.
func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
