package docker

import (
	"context"
	"encoding/json"
	"io"
	"sort"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/yurykabanov/aci-redeployer/pkg"
	"github.com/yurykabanov/aci-redeployer/pkg/domain"
)

const (
	localLocation = "local"

	// ManagedLabel marks containers created by the redeployer
	ManagedLabel = "io.github.yurykabanov.aci-redeployer.managed"
)

// engine is the part of the Docker API a session needs.
type engine interface {
	NetworkExists(ctx context.Context, name string) (bool, error)
	RemoveContainer(ctx context.Context, name string) error
	PullImage(ctx context.Context, ref string) error
	CreateContainer(ctx context.Context, name string, config *container.Config, hostConfig *container.HostConfig, networkConfig *network.NetworkingConfig) (string, error)
	StartContainer(ctx context.Context, id string) error
	Close() error
}

type provider struct {
	connect func(ctx context.Context) (engine, error)
}

// NewProvider talks to the engine configured by DOCKER_HOST & co. Resource groups map
// onto existing Docker networks, container groups onto containers attached to them.
func NewProvider(opts ...client.Opt) *provider {
	opts = append([]client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}, opts...)

	return &provider{
		connect: func(ctx context.Context) (engine, error) {
			cli, err := client.NewClientWithOpts(opts...)
			if err != nil {
				return nil, errors.Wrap(err, "create docker client")
			}

			if _, err := cli.Ping(ctx); err != nil {
				cli.Close()
				return nil, errors.Wrap(err, "connect to docker daemon")
			}

			return &clientEngine{cli: cli}, nil
		},
	}
}

// Authenticate ignores the service principal: access to the local daemon is all there is.
func (p *provider) Authenticate(ctx context.Context, _ *domain.Credentials) (domain.Session, error) {
	e, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}

	return &session{engine: e}, nil
}

type session struct {
	engine engine
}

func (s *session) ResourceGroup(ctx context.Context, name string) (*domain.ResourceGroup, error) {
	exists, err := s.engine.NetworkExists(ctx, name)
	if err != nil {
		return nil, errors.Wrapf(err, "look up network %s", name)
	}

	if !exists {
		return nil, errors.Wrapf(domain.ErrResourceGroupNotFound, "no docker network named %s", name)
	}

	return &domain.ResourceGroup{Name: name, Location: localLocation}, nil
}

func (s *session) Close() error {
	return s.engine.Close()
}

// CreateContainerGroup replaces each container of the group: remove, pull, create, start.
func (s *session) CreateContainerGroup(ctx context.Context, descriptor *domain.Descriptor) error {
	logger := pkg.LoggerFromContext(ctx)

	for _, c := range descriptor.Containers {
		logger := logger.WithFields(log.Fields{"container": c.Name, "image": c.Image})

		if err := s.engine.RemoveContainer(ctx, c.Name); err != nil {
			return errors.Wrapf(err, "remove container %s", c.Name)
		}

		logger.Debug("Pulling image")
		if err := s.engine.PullImage(ctx, c.Image); err != nil {
			return errors.Wrapf(err, "pull image %s", c.Image)
		}

		config, hostConfig := ContainerSpec(c, descriptor.RestartPolicy)
		networkConfig := &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				descriptor.ResourceGroup: {},
			},
		}

		id, err := s.engine.CreateContainer(ctx, c.Name, config, hostConfig, networkConfig)
		if err != nil {
			return errors.Wrapf(err, "create container %s", c.Name)
		}

		if err := s.engine.StartContainer(ctx, id); err != nil {
			return errors.Wrapf(err, "start container %s", c.Name)
		}

		logger.WithField("container_id", id).Debug("Container started")
	}

	return nil
}

// ContainerSpec translates a container instance into engine configuration: sorted
// KEY=VALUE environment, no exposed ports, CPU and memory limits.
func ContainerSpec(c domain.ContainerInstance, restartPolicy string) (*container.Config, *container.HostConfig) {
	names := make([]string, 0, len(c.Environment))
	for name := range c.Environment {
		names = append(names, name)
	}
	sort.Strings(names)

	env := make([]string, 0, len(names))
	for _, name := range names {
		env = append(env, name+"="+c.Environment[name])
	}

	policy := container.RestartPolicyDisabled
	if restartPolicy == domain.RestartPolicyAlways {
		policy = container.RestartPolicyAlways
	}

	config := &container.Config{
		Image:  c.Image,
		Env:    env,
		Labels: map[string]string{ManagedLabel: "true"},
	}

	hostConfig := &container.HostConfig{
		RestartPolicy: container.RestartPolicy{Name: policy},
		Resources: container.Resources{
			NanoCPUs: int64(c.CpuCores * 1e9),
			Memory:   int64(c.MemoryInGB * (1 << 30)),
		},
	}

	return config, hostConfig
}

type clientEngine struct {
	cli *client.Client
}

func (e *clientEngine) NetworkExists(ctx context.Context, name string) (bool, error) {
	networks, err := e.cli.NetworkList(ctx, network.ListOptions{Filters: filters.NewArgs(filters.Arg("name", name))})
	if err != nil {
		return false, err
	}

	// the name filter matches substrings
	for _, n := range networks {
		if n.Name == name {
			return true, nil
		}
	}

	return false, nil
}

func (e *clientEngine) RemoveContainer(ctx context.Context, name string) error {
	err := e.cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: true})
	if err != nil && !errdefs.IsNotFound(err) {
		return err
	}
	return nil
}

func (e *clientEngine) PullImage(ctx context.Context, ref string) error {
	out, err := e.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return err
	}
	defer out.Close()

	return detectErrorMessage(out)
}

func (e *clientEngine) CreateContainer(ctx context.Context, name string, config *container.Config, hostConfig *container.HostConfig, networkConfig *network.NetworkingConfig) (string, error) {
	resp, err := e.cli.ContainerCreate(ctx, config, hostConfig, networkConfig, nil, name)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (e *clientEngine) StartContainer(ctx context.Context, id string) error {
	return e.cli.ContainerStart(ctx, id, container.StartOptions{})
}

func (e *clientEngine) Close() error {
	return e.cli.Close()
}

// detectErrorMessage drains a pull progress stream and returns the first error it reports.
func detectErrorMessage(in io.Reader) error {
	dec := json.NewDecoder(in)

	for {
		var jm jsonmessage.JSONMessage
		if err := dec.Decode(&jm); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		if jm.Error != nil {
			return jm.Error
		}
	}
}
