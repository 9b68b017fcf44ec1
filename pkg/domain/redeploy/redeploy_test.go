package redeploy

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yurykabanov/aci-redeployer/pkg/domain"
	"github.com/yurykabanov/aci-redeployer/pkg/settings"
)

type fakeProvider struct {
	authErr     error
	groups      map[string]*domain.ResourceGroup
	createErr   error
	credentials []*domain.Credentials
	created     []*domain.Descriptor
	closed      int
}

func (p *fakeProvider) Authenticate(ctx context.Context, credentials *domain.Credentials) (domain.Session, error) {
	p.credentials = append(p.credentials, credentials)
	if p.authErr != nil {
		return nil, p.authErr
	}
	return &fakeSession{provider: p}, nil
}

type fakeSession struct {
	provider *fakeProvider
}

func (s *fakeSession) Close() error {
	s.provider.closed++
	return nil
}

func (s *fakeSession) ResourceGroup(ctx context.Context, name string) (*domain.ResourceGroup, error) {
	group, ok := s.provider.groups[name]
	if !ok {
		return nil, domain.ErrResourceGroupNotFound
	}
	return group, nil
}

func (s *fakeSession) CreateContainerGroup(ctx context.Context, descriptor *domain.Descriptor) error {
	s.provider.created = append(s.provider.created, descriptor)
	return s.provider.createErr
}

func newProvider() *fakeProvider {
	return &fakeProvider{
		groups: map[string]*domain.ResourceGroup{
			domain.DefaultResourceGroup: {Name: domain.DefaultResourceGroup, Location: "westeurope"},
		},
	}
}

var testConfig = settings.MapSource{
	"ClientId":          "id",
	"ClientSecret":      "secret",
	"TenantId":          "tenant",
	"SubscriptionId":    "sub",
	"HUBOT_ENV_KEYS":    "HUBOT_SLACK_TOKEN,HUBOT_NAME",
	"HUBOT_SLACK_TOKEN": "xoxb",
	"HUBOT_NAME":        "donkeybot",
}

func newService(provider *fakeProvider) *redeployService {
	return NewRedeployService(provider, settings.StaticLoader{Source: testConfig}, domain.DefaultTarget(), NewStamper(nil))
}

func signal() *domain.Signal {
	return &domain.Signal{Id: "1", Value: domain.SignalValue}
}

func TestRedeploy_Success(t *testing.T) {
	provider := newProvider()

	err := newService(provider).Redeploy(context.Background(), signal())
	require.NoError(t, err)

	require.Len(t, provider.credentials, 1)
	assert.Equal(t, &domain.Credentials{ClientId: "id", ClientSecret: "secret", TenantId: "tenant", SubscriptionId: "sub"}, provider.credentials[0])

	require.Len(t, provider.created, 1)
	d := provider.created[0]
	assert.Equal(t, "donkeybot", d.Name)
	assert.Equal(t, "Donkeybot", d.ResourceGroup)
	assert.Equal(t, "westeurope", d.Location)
	require.Len(t, d.Containers, 1)
	assert.Equal(t, "perrym5/donkeybot", d.Containers[0].Image)
	assert.Equal(t, "xoxb", d.Containers[0].Environment["HUBOT_SLACK_TOKEN"])
	assert.Equal(t, "donkeybot", d.Containers[0].Environment["HUBOT_NAME"])
	assert.Contains(t, d.Containers[0].Environment, domain.TimestampEnvKey)
	assert.Equal(t, 1, provider.closed)
}

func TestRedeploy_SignalValueIgnored(t *testing.T) {
	provider := newProvider()

	err := newService(provider).Redeploy(context.Background(), &domain.Signal{Value: "anything at all"})

	require.NoError(t, err)
	assert.Len(t, provider.created, 1)
}

func TestRedeploy_AuthenticationFailure(t *testing.T) {
	provider := newProvider()
	provider.authErr = errors.New("invalid client secret")

	err := newService(provider).Redeploy(context.Background(), signal())

	require.Error(t, err)
	assert.Equal(t, provider.authErr, errors.Cause(err))
	assert.Empty(t, provider.created)
}

func TestRedeploy_ResourceGroupNotFound(t *testing.T) {
	provider := newProvider()
	provider.groups = nil

	err := newService(provider).Redeploy(context.Background(), signal())

	require.Error(t, err)
	assert.Equal(t, domain.ErrResourceGroupNotFound, errors.Cause(err))
	assert.Empty(t, provider.created)
	assert.Equal(t, 1, provider.closed)
}

func TestRedeploy_CreateFailure(t *testing.T) {
	provider := newProvider()
	provider.createErr = errors.New("conflict")

	err := newService(provider).Redeploy(context.Background(), signal())

	require.Error(t, err)
	assert.Equal(t, provider.createErr, errors.Cause(err))
}

type failingLoader struct{}

func (failingLoader) Load(context.Context) (settings.Source, error) {
	return nil, errors.New("unreadable")
}

func TestRedeploy_SettingsFailure(t *testing.T) {
	provider := newProvider()
	svc := NewRedeployService(provider, failingLoader{}, domain.DefaultTarget(), NewStamper(nil))

	err := svc.Redeploy(context.Background(), signal())

	require.Error(t, err)
	assert.Empty(t, provider.credentials)
}

func TestRedeploy_TimestampChangesBetweenInvocations(t *testing.T) {
	provider := newProvider()
	frozen := time.Unix(1700000000, 0)
	svc := NewRedeployService(provider, settings.StaticLoader{Source: testConfig}, domain.DefaultTarget(), NewStamper(func() time.Time { return frozen }))

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Redeploy(context.Background(), signal()))
	}

	seen := map[string]bool{}
	for _, d := range provider.created {
		seen[d.Containers[0].Environment[domain.TimestampEnvKey]] = true
	}
	assert.Len(t, seen, 3)
}

func TestRedeploy_ReauthenticatesEveryRun(t *testing.T) {
	provider := newProvider()
	svc := newService(provider)

	require.NoError(t, svc.Redeploy(context.Background(), signal()))
	require.NoError(t, svc.Redeploy(context.Background(), signal()))

	assert.Len(t, provider.credentials, 2)
}
