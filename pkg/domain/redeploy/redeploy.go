package redeploy

import (
	"context"
	"io"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/yurykabanov/aci-redeployer/pkg"
	"github.com/yurykabanov/aci-redeployer/pkg/domain"
	"github.com/yurykabanov/aci-redeployer/pkg/settings"
)

type redeployService struct {
	provider domain.Provider
	loader   settings.Loader
	target   domain.Target
	stamper  *Stamper
}

func NewRedeployService(provider domain.Provider, loader settings.Loader, target domain.Target, stamper *Stamper) *redeployService {
	return &redeployService{
		provider: provider,
		loader:   loader,
		target:   target,
		stamper:  stamper,
	}
}

func (svc *redeployService) Redeploy(ctx context.Context, signal *domain.Signal) error {
	logger := pkg.LoggerFromContext(ctx).WithFields(log.Fields{
		"resource_group":  svc.target.ResourceGroup,
		"container_group": svc.target.ContainerGroup,
		"image":           svc.target.Image,
	})

	logger.WithField("signal_id", signal.Id).Infof("Processing redeploy signal '%s'", signal.Value)

	config, err := svc.loader.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "load settings")
	}

	session, err := svc.authenticate(ctx, logger, config)
	if err != nil {
		return err
	}
	if closer, ok := session.(io.Closer); ok {
		defer closer.Close()
	}

	group, err := session.ResourceGroup(ctx, svc.target.ResourceGroup)
	if err != nil {
		return errors.Wrapf(err, "get resource group '%s'", svc.target.ResourceGroup)
	}

	env := BuildEnvironment(config, svc.stamper.Next())
	descriptor := domain.NewDescriptor(svc.target, group, env)

	logger.WithField("env_keys", len(env)).Info("Creating container instance")

	if err := session.CreateContainerGroup(ctx, descriptor); err != nil {
		return errors.Wrapf(err, "create container group '%s'", descriptor.Name)
	}

	logger.Info("Successfully created container instance")

	return nil
}

func (svc *redeployService) authenticate(ctx context.Context, logger log.FieldLogger, config settings.Source) (domain.Session, error) {
	logger.Info("Authenticating with cloud provider...")

	credentials := &domain.Credentials{
		ClientId:       config.GetString(settings.KeyClientId),
		ClientSecret:   config.GetString(settings.KeyClientSecret),
		TenantId:       config.GetString(settings.KeyTenantId),
		SubscriptionId: config.GetString(settings.KeySubscriptionId),
	}

	session, err := svc.provider.Authenticate(ctx, credentials)
	if err != nil {
		logger.WithError(err).Error("Failed to authenticate")
		return nil, errors.Wrap(err, "authenticate")
	}

	return session, nil
}
