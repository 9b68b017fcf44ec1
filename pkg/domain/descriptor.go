package domain

const (
	DefaultResourceGroup  = "Donkeybot"
	DefaultContainerGroup = "donkeybot"
	DefaultImage          = "perrym5/donkeybot"

	TimestampEnvKey = "TIMESTAMP"

	ContainerCpuCores    = 1.0
	ContainerMemoryInGB  = 1.0
	RestartPolicyAlways  = "Always"
	OperatingSystemLinux = "Linux"
)

type Target struct {
	ResourceGroup  string `validate:"required"`
	ContainerGroup string `validate:"required"`
	Image          string `validate:"required"`
}

func DefaultTarget() Target {
	return Target{
		ResourceGroup:  DefaultResourceGroup,
		ContainerGroup: DefaultContainerGroup,
		Image:          DefaultImage,
	}
}

type ContainerInstance struct {
	Name        string
	Image       string
	CpuCores    float64
	MemoryInGB  float64
	Ports       []int
	Environment map[string]string
}

// Descriptor is the complete definition of a container group. It is rebuilt on every
// redeploy and replaces whatever the provider currently has under the same name.
type Descriptor struct {
	ResourceGroup string
	Location      string
	Name          string
	OsType        string
	RestartPolicy string
	Containers    []ContainerInstance
}

// NewDescriptor always yields a single container instance with fixed sizing, no ports
// and the always-restart policy, whatever target and environment are passed in.
func NewDescriptor(target Target, group *ResourceGroup, env map[string]string) *Descriptor {
	environment := make(map[string]string, len(env))
	for k, v := range env {
		environment[k] = v
	}

	return &Descriptor{
		ResourceGroup: group.Name,
		Location:      group.Location,
		Name:          target.ContainerGroup,
		OsType:        OperatingSystemLinux,
		RestartPolicy: RestartPolicyAlways,
		Containers: []ContainerInstance{
			{
				Name:        target.ContainerGroup,
				Image:       target.Image,
				CpuCores:    ContainerCpuCores,
				MemoryInGB:  ContainerMemoryInGB,
				Environment: environment,
			},
		},
	}
}
