package bootstrap

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/yurykabanov/aci-redeployer/pkg/domain"
	"github.com/yurykabanov/aci-redeployer/pkg/domain/redeploy"
	"github.com/yurykabanov/aci-redeployer/pkg/provider/azure"
	"github.com/yurykabanov/aci-redeployer/pkg/provider/docker"
	natsqueue "github.com/yurykabanov/aci-redeployer/pkg/queue/nats"
	"github.com/yurykabanov/aci-redeployer/pkg/settings"
	"github.com/yurykabanov/aci-redeployer/pkg/settings/infisical"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func NewProvider() (domain.Provider, error) {
	switch kind := viper.GetString(ConfigProviderKind); kind {
	case ProviderAzure:
		return azure.NewProvider(), nil
	case ProviderDocker:
		return docker.NewProvider(), nil
	default:
		return nil, errors.Errorf("unknown provider '%s'", kind)
	}
}

func NewTarget() (domain.Target, error) {
	target := domain.Target{
		ResourceGroup:  viper.GetString(ConfigTargetResourceGroup),
		ContainerGroup: viper.GetString(ConfigTargetContainerGroup),
		Image:          viper.GetString(ConfigTargetImage),
	}

	if err := validate.Struct(target); err != nil {
		return target, errors.Wrap(err, "invalid target")
	}

	return target, nil
}

// NewSettingsLoader returns the loader consulted on every redeploy, backed by Infisical
// when a machine identity is configured.
func NewSettingsLoader() (settings.Loader, error) {
	var loader settings.Loader = settings.NewLoader(viper.GetString(ConfigSettingsFile))

	if viper.GetString(ConfigInfisicalClientId) == "" {
		return loader, nil
	}

	config := infisical.Config{
		SiteUrl:      viper.GetString(ConfigInfisicalSiteUrl),
		ClientId:     viper.GetString(ConfigInfisicalClientId),
		ClientSecret: viper.GetString(ConfigInfisicalClientSecret),
		ProjectId:    viper.GetString(ConfigInfisicalProjectId),
		Environment:  viper.GetString(ConfigInfisicalEnvironment),
		SecretPath:   viper.GetString(ConfigInfisicalPath),
	}
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(err, "invalid infisical configuration")
	}

	return infisical.NewLoader(config, loader), nil
}

func NewRedeployService() (domain.RedeployService, error) {
	provider, err := NewProvider()
	if err != nil {
		return nil, err
	}

	target, err := NewTarget()
	if err != nil {
		return nil, err
	}

	loader, err := NewSettingsLoader()
	if err != nil {
		return nil, err
	}

	return redeploy.NewRedeployService(provider, loader, target, redeploy.NewStamper(nil)), nil
}

func NatsConfig() natsqueue.Config {
	return natsqueue.Config{
		Url:        viper.GetString(ConfigQueueNatsUrl),
		Stream:     viper.GetString(ConfigQueueNatsStream),
		Subject:    viper.GetString(ConfigQueueName),
		Durable:    viper.GetString(ConfigQueueNatsDurable),
		MaxDeliver: viper.GetInt(ConfigQueueNatsMaxDeliver),
		AckWait:    viper.GetDuration(ConfigQueueNatsAckWait),
	}
}

func NewNatsQueue(ctx context.Context) (*natsqueue.Queue, error) {
	config := NatsConfig()

	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(err, "invalid nats configuration")
	}

	return natsqueue.Connect(ctx, config)
}
