package infisical

import (
	"context"

	infisical "github.com/infisical/go-sdk"
	"github.com/infisical/go-sdk/packages/models"
	"github.com/pkg/errors"
	"github.com/yurykabanov/aci-redeployer/pkg"
	"github.com/yurykabanov/aci-redeployer/pkg/settings"
)

type Config struct {
	SiteUrl      string
	ClientId     string `validate:"required"`
	ClientSecret string `validate:"required"`
	ProjectId    string `validate:"required"`
	Environment  string `validate:"required"`
	SecretPath   string
}

type secretsClient interface {
	Login(clientId, clientSecret string) error
	ListSecrets(projectId, environment, secretPath string) ([]models.Secret, error)
}

type sdkClient struct {
	client infisical.InfisicalClientInterface
}

func (c *sdkClient) Login(clientId, clientSecret string) error {
	_, err := c.client.Auth().UniversalAuthLogin(clientId, clientSecret)
	return err
}

func (c *sdkClient) ListSecrets(projectId, environment, secretPath string) ([]models.Secret, error) {
	return c.client.Secrets().List(infisical.ListSecretsOptions{
		ProjectID:   projectId,
		Environment: environment,
		SecretPath:  secretPath,
	})
}

type loader struct {
	config Config
	next   settings.Loader
	client func() secretsClient
}

// NewLoader wraps next so that every Load fetches the project secrets from Infisical
// and lays them over the settings next returns. Secrets never reach the process
// environment, so one removed in Infisical is gone on the next Load.
func NewLoader(config Config, next settings.Loader) *loader {
	if config.SecretPath == "" {
		config.SecretPath = "/"
	}

	return &loader{
		config: config,
		next:   next,
		client: func() secretsClient {
			return &sdkClient{client: infisical.NewInfisicalClient(infisical.Config{SiteUrl: config.SiteUrl})}
		},
	}
}

func (l *loader) Load(ctx context.Context) (settings.Source, error) {
	logger := pkg.LoggerFromContext(ctx)

	client := l.client()

	if err := client.Login(l.config.ClientId, l.config.ClientSecret); err != nil {
		return nil, errors.Wrap(err, "infisical login")
	}

	secrets, err := client.ListSecrets(l.config.ProjectId, l.config.Environment, l.config.SecretPath)
	if err != nil {
		return nil, errors.Wrapf(err, "list infisical secrets at %s", l.config.SecretPath)
	}

	values := make(settings.MapSource, len(secrets))
	for _, secret := range secrets {
		values[secret.SecretKey] = secret.SecretValue
	}

	logger.Debugf("Loaded %d secrets from infisical path '%s'", len(secrets), l.config.SecretPath)

	base, err := l.next.Load(ctx)
	if err != nil {
		return nil, err
	}

	return settings.Overlay(values, base), nil
}
