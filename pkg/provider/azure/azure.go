package azure

import (
	"context"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerinstance/armcontainerinstance/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/yurykabanov/aci-redeployer/pkg"
	"github.com/yurykabanov/aci-redeployer/pkg/domain"
)

const managementScope = "https://management.azure.com/.default"

type provider struct {
	validate      *validator.Validate
	clientOptions *arm.ClientOptions
}

type ProviderOption func(p *provider)

func WithClientOptions(options *arm.ClientOptions) ProviderOption {
	return func(p *provider) {
		p.clientOptions = options
	}
}

func NewProvider(opts ...ProviderOption) *provider {
	p := &provider{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Authenticate builds a service principal credential and requests a management token
// right away, so bad secrets fail here and not halfway through a deployment.
func (p *provider) Authenticate(ctx context.Context, credentials *domain.Credentials) (domain.Session, error) {
	if err := p.validate.Struct(credentials); err != nil {
		return nil, errors.Wrap(err, "incomplete service principal credentials")
	}

	var credentialOptions *azidentity.ClientSecretCredentialOptions
	if p.clientOptions != nil {
		credentialOptions = &azidentity.ClientSecretCredentialOptions{ClientOptions: p.clientOptions.ClientOptions}
	}

	credential, err := azidentity.NewClientSecretCredential(credentials.TenantId, credentials.ClientId, credentials.ClientSecret, credentialOptions)
	if err != nil {
		return nil, errors.Wrap(err, "create client secret credential")
	}

	if _, err := credential.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{managementScope}}); err != nil {
		return nil, errors.Wrap(err, "acquire management token")
	}

	groups, err := armresources.NewResourceGroupsClient(credentials.SubscriptionId, credential, p.clientOptions)
	if err != nil {
		return nil, errors.Wrap(err, "create resource groups client")
	}

	containerGroups, err := armcontainerinstance.NewContainerGroupsClient(credentials.SubscriptionId, credential, p.clientOptions)
	if err != nil {
		return nil, errors.Wrap(err, "create container groups client")
	}

	return &session{groups: groups, containerGroups: containerGroups}, nil
}

type session struct {
	groups          *armresources.ResourceGroupsClient
	containerGroups *armcontainerinstance.ContainerGroupsClient
}

func (s *session) ResourceGroup(ctx context.Context, name string) (*domain.ResourceGroup, error) {
	resp, err := s.groups.Get(ctx, name, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return nil, errors.Wrapf(domain.ErrResourceGroupNotFound, "%s (%s)", name, respErr.ErrorCode)
		}
		return nil, err
	}

	return &domain.ResourceGroup{
		Name:     deref(resp.Name),
		Location: deref(resp.Location),
	}, nil
}

func (s *session) CreateContainerGroup(ctx context.Context, descriptor *domain.Descriptor) error {
	logger := pkg.LoggerFromContext(ctx)

	poller, err := s.containerGroups.BeginCreateOrUpdate(ctx, descriptor.ResourceGroup, descriptor.Name, ContainerGroup(descriptor), nil)
	if err != nil {
		return err
	}

	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return err
	}

	if resp.Properties != nil {
		logger.WithField("provisioning_state", deref(resp.Properties.ProvisioningState)).Debug("Container group provisioned")
	}

	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
