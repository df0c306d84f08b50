package publisher

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

// Publisher hands finished artifacts to a Store.
type Publisher struct {
	store  Store
	logger *log.Logger
}

// New creates a Publisher writing to store.
func New(store Store, logger *log.Logger) (*Publisher, error) {
	if store == nil {
		return nil, errors.New("artifact store is required")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Publisher{store: store, logger: logger}, nil
}

// NewFromConfig builds the store selected by cfg.
func NewFromConfig(cfg ExportConfig, logger *log.Logger) (*Publisher, error) {
	var (
		store Store
		err   error
	)
	switch cfg.Backend {
	case "", "local":
		store, err = NewLocalStore(cfg.Dir)
	case "s3":
		store = NewS3Store(NewS3Client(cfg.S3), cfg.S3.Bucket, cfg.S3.Prefix)
	default:
		err = fmt.Errorf("export backend %q not supported", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return New(store, logger)
}

// Publish stores a and returns where it ended up.
func (p *Publisher) Publish(ctx context.Context, a Artifact) (string, error) {
	if len(a.Data) == 0 {
		return "", fmt.Errorf("artifact %s is empty", a.Name)
	}
	location, err := p.store.Put(ctx, a.Name, a.MediaType, a.Data)
	if err != nil {
		return "", fmt.Errorf("store %s: %w", a.Name, err)
	}
	p.logger.Info("artifact published", "name", a.Name, "size", humanize.Bytes(uint64(len(a.Data))), "location", location)
	return location, nil
}

// Fetch returns a previously published artifact.
func (p *Publisher) Fetch(ctx context.Context, name string) ([]byte, error) {
	return p.store.Get(ctx, name)
}
