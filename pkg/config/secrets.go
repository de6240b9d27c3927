package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

type SecretAccessor interface {
	AccessSecret(ctx context.Context, name string) (string, error)
	Close() error
}

type accessorFactory func(ctx context.Context) (SecretAccessor, error)

type secretManagerAccessor struct {
	client *secretmanager.Client
}

func newSecretManagerAccessor(ctx context.Context) (SecretAccessor, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	return &secretManagerAccessor{client: client}, nil
}

func (a *secretManagerAccessor) AccessSecret(ctx context.Context, name string) (string, error) {
	resp, err := a.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("failed to access secret %s: %w", name, err)
	}
	return string(resp.GetPayload().GetData()), nil
}

func (a *secretManagerAccessor) Close() error {
	return a.client.Close()
}

// secretVersionName expands a bare secret id into a full version resource name.
func secretVersionName(project, secret string) (string, error) {
	if strings.HasPrefix(secret, "projects/") {
		if !strings.Contains(secret, "/versions/") {
			secret += "/versions/latest"
		}
		return secret, nil
	}
	if project == "" {
		return "", fmt.Errorf("GOOGLE_CLOUD_PROJECT is required to resolve secret %q", secret)
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", project, secret), nil
}

func resolveSecrets(ctx context.Context, cfg *Config, newAccessor accessorFactory) error {
	if cfg.APISecretKey != "" || cfg.Auth.SecretName == "" {
		return nil
	}

	name, err := secretVersionName(cfg.GCPProject, cfg.Auth.SecretName)
	if err != nil {
		return err
	}

	accessor, err := newAccessor(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = accessor.Close() }()

	value, err := accessor.AccessSecret(ctx, name)
	if err != nil {
		return err
	}

	cfg.APISecretKey = strings.TrimSpace(value)
	slog.Debug("Loaded API secret key from Secret Manager", "secret", name)
	return nil
}
