package azure

import (
	"sort"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerinstance/armcontainerinstance/v2"
	"github.com/yurykabanov/aci-redeployer/pkg/domain"
)

// ContainerGroup maps the descriptor onto the ARM model. The group has no IP address,
// no volumes and only pulls from public registries.
func ContainerGroup(descriptor *domain.Descriptor) armcontainerinstance.ContainerGroup {
	containers := make([]*armcontainerinstance.Container, 0, len(descriptor.Containers))

	for _, c := range descriptor.Containers {
		containers = append(containers, &armcontainerinstance.Container{
			Name: to.Ptr(c.Name),
			Properties: &armcontainerinstance.ContainerProperties{
				Image: to.Ptr(c.Image),
				Resources: &armcontainerinstance.ResourceRequirements{
					Requests: &armcontainerinstance.ResourceRequests{
						CPU:        to.Ptr(c.CpuCores),
						MemoryInGB: to.Ptr(c.MemoryInGB),
					},
				},
				EnvironmentVariables: environmentVariables(c.Environment),
				Ports:                []*armcontainerinstance.ContainerPort{},
			},
		})
	}

	return armcontainerinstance.ContainerGroup{
		Location: to.Ptr(descriptor.Location),
		Properties: &armcontainerinstance.ContainerGroupPropertiesProperties{
			Containers:    containers,
			OSType:        to.Ptr(armcontainerinstance.OperatingSystemTypes(descriptor.OsType)),
			RestartPolicy: to.Ptr(armcontainerinstance.ContainerGroupRestartPolicy(descriptor.RestartPolicy)),
		},
	}
}

func environmentVariables(env map[string]string) []*armcontainerinstance.EnvironmentVariable {
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	sort.Strings(names)

	vars := make([]*armcontainerinstance.EnvironmentVariable, 0, len(names))
	for _, name := range names {
		vars = append(vars, &armcontainerinstance.EnvironmentVariable{
			Name:  to.Ptr(name),
			Value: to.Ptr(env[name]),
		})
	}

	return vars
}
