package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kursadbilgin/message-courier/internal/domain"
	"github.com/kursadbilgin/message-courier/internal/observability"
	"github.com/kursadbilgin/message-courier/internal/repository"
	"go.uber.org/zap"
)

// SaveCredentialsResult reports the outcome of a credential save.
type SaveCredentialsResult struct {
	ID      string
	Updated bool
}

// CredentialView is a redacted credential representation safe for display.
type CredentialView struct {
	ID        string
	Provider  string
	Key       string
	Options   map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Registry maps provider names to constructors and resolves credentials on
// demand. Register is expected to run once at startup; it is not safe to
// call concurrently with resolution.
type Registry struct {
	credentials  repository.CredentialRepository
	constructors map[string]Constructor
	logger       *zap.Logger
	metrics      *observability.Metrics
	now          func() time.Time
}

func NewRegistry(credentials repository.CredentialRepository, logger *zap.Logger) (*Registry, error) {
	if credentials == nil {
		return nil, fmt.Errorf("credential repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Registry{
		credentials:  credentials,
		constructors: make(map[string]Constructor),
		logger:       logger,
		now:          time.Now,
	}, nil
}

func (r *Registry) SetMetrics(metrics *observability.Metrics) {
	if r == nil {
		return
	}
	r.metrics = metrics
}

// Register binds a provider name to a constructor. The last registration
// for a name wins.
func (r *Registry) Register(name string, constructor Constructor) {
	r.constructors[name] = constructor
	r.logger.Info("registered provider", zap.String("provider", name))
}

// RegisteredProviders returns the known provider names, sorted.
func (r *Registry) RegisteredProviders() []string {
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetProvider instantiates a provider bound to resolved credentials. An
// empty clientID resolves the provider's default credential; if none
// exists, construction proceeds with nil credentials and providers that
// require secrets fail fast.
func (r *Registry) GetProvider(ctx context.Context, name, clientID string) (Provider, error) {
	start := r.now()

	constructor, ok := r.constructors[name]
	if !ok {
		r.observe("get_provider", false, start)
		return nil, fmt.Errorf("%w: %s", domain.ErrNotRegistered, name)
	}

	var options map[string]string
	operation := "get_provider_without_credentials"

	if clientID != "" {
		cred, err := r.credentials.FindByKey(ctx, name, clientID)
		if err != nil {
			r.observe("get_provider", false, start)
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: provider %s client %s", domain.ErrCredentialsNotFound, name, clientID)
			}
			return nil, err
		}
		options = cred.Options
		operation = "get_provider_with_client_id"
	} else {
		cred, err := r.credentials.FindDefault(ctx, name)
		switch {
		case err == nil:
			options = cred.Options
			operation = "get_provider_with_default_credentials"
		case errors.Is(err, domain.ErrNotFound):
			// No default credential; providers without required
			// secrets tolerate a nil bag.
		default:
			r.observe("get_provider", false, start)
			return nil, err
		}
	}

	instance, err := constructor(options)
	if err != nil {
		r.observe("get_provider", false, start)
		r.logger.Error("failed to construct provider",
			zap.String("provider", name),
			zap.String("clientId", clientID),
			zap.Error(err),
		)
		return nil, err
	}

	r.observe(operation, true, start)
	return instance, nil
}

// SaveCredentials upserts the credential for (provider, clientID). Two
// concurrent saves for the same key never both insert.
func (r *Registry) SaveCredentials(ctx context.Context, name, clientID string, options map[string]string) (*SaveCredentialsResult, error) {
	start := r.now()

	if _, ok := r.constructors[name]; !ok {
		r.observe("save_credentials", false, start)
		return nil, fmt.Errorf("%w: %s", domain.ErrNotRegistered, name)
	}
	if strings.TrimSpace(clientID) == "" {
		r.observe("save_credentials", false, start)
		return nil, fmt.Errorf("%w: client id is required", domain.ErrValidation)
	}
	if len(options) == 0 {
		r.observe("save_credentials", false, start)
		return nil, fmt.Errorf("%w: options are required", domain.ErrValidation)
	}

	result, err := r.credentials.Upsert(ctx, name, clientID, options)
	if err != nil {
		r.observe("save_credentials", false, start)
		r.logger.Error("failed to save credentials",
			zap.String("provider", name),
			zap.String("clientId", clientID),
			zap.Error(err),
		)
		return nil, err
	}

	operation := "update_credentials"
	if result.Created {
		operation = "insert_credentials"
	}
	r.observe(operation, true, start)

	return &SaveCredentialsResult{
		ID:      result.Credential.ID,
		Updated: !result.Created,
	}, nil
}

// ListCredentials returns redacted credential views, optionally filtered by
// provider name. Every option value is masked with an equal-length string.
func (r *Registry) ListCredentials(ctx context.Context, name string) ([]CredentialView, error) {
	start := r.now()

	creds, err := r.credentials.List(ctx, name)
	if err != nil {
		r.observe("list_credentials", false, start)
		return nil, err
	}

	views := make([]CredentialView, 0, len(creds))
	for i := range creds {
		cred := creds[i]
		views = append(views, CredentialView{
			ID:        cred.ID,
			Provider:  cred.Provider,
			Key:       cred.Key,
			Options:   redactOptions(cred.Options),
			CreatedAt: cred.CreatedAt,
			UpdatedAt: cred.UpdatedAt,
		})
	}

	r.observe("list_credentials", true, start)
	return views, nil
}

// redactOptions masks every value with '*' runes of equal length so the
// value length stays visible without revealing content.
func redactOptions(options map[string]string) map[string]string {
	redacted := make(map[string]string, len(options))
	for key, value := range options {
		redacted[key] = strings.Repeat("*", len(value))
	}
	return redacted
}

func (r *Registry) observe(operation string, success bool, start time.Time) {
	if r.metrics == nil {
		return
	}
	r.metrics.ObserveRegistryOperation(operation, success, r.now().Sub(start))
}
