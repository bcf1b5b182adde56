// Package docker implements the inventory client against a Docker Engine:
// each managed server is a labelled container, instance tags are labels, and
// addresses come from the container's network endpoints.
package docker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
	dockerclient "github.com/docker/docker/client"

	"github.com/nubelab/kumo/internal/kumo/inventory"
)

const (
	labelManagedBy  = "kumo.managed-by"
	labelServerName = "kumo.server-name"
	labelMetaPrefix = "kumo.meta."
	managedByValue  = "kumo"

	// stopTimeout is how long to wait for graceful container stop before SIGKILL.
	stopTimeout = 10 * time.Second
)

// Options configures the adapter.
type Options struct {
	// Network is the Docker network servers are attached to.
	Network string
	// MaxServers caps the number of managed instances. Zero means no cap.
	// Hitting the cap surfaces as an inventory.QuotaError.
	MaxServers int
}

// Adapter implements inventory.Client using the Docker Engine API.
type Adapter struct {
	client     *dockerclient.Client
	network    string
	maxServers int
}

var _ inventory.Client = (*Adapter)(nil)

// New creates a Docker inventory adapter. The engine endpoint comes from
// DOCKER_HOST or the default socket path.
func New(opts Options) (*Adapter, error) {
	cli, err := dockerclient.NewClientWithOpts(
		dockerclient.FromEnv,
		dockerclient.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	net := opts.Network
	if net == "" {
		net = "kumo"
	}
	return &Adapter{client: cli, network: net, maxServers: opts.MaxServers}, nil
}

// EnsureNetwork creates the managed Docker network if it doesn't exist.
func (a *Adapter) EnsureNetwork(ctx context.Context) error {
	nets, err := a.client.NetworkList(ctx, network.ListOptions{
		Filters: filters.NewArgs(filters.Arg("name", a.network)),
	})
	if err != nil {
		return fmt.Errorf("list networks: %w", err)
	}
	for _, n := range nets {
		if n.Name == a.network {
			return nil
		}
	}
	_, err = a.client.NetworkCreate(ctx, a.network, network.CreateOptions{
		Driver:     "bridge",
		Attachable: true,
		Labels:     map[string]string{labelManagedBy: managedByValue},
	})
	if err != nil {
		return fmt.Errorf("create network %q: %w", a.network, err)
	}
	return nil
}

// Create provisions a container for the named server. Userdata is injected
// as an environment variable so the image's init process can pick it up at
// boot, mirroring cloud-init on a real compute platform.
func (a *Adapter) Create(ctx context.Context, req inventory.CreateRequest) (*inventory.Reference, error) {
	if req.Image == "" {
		return nil, fmt.Errorf("create %q: image is required", req.Name)
	}

	if a.maxServers > 0 {
		existing, err := a.listManaged(ctx)
		if err != nil {
			return nil, err
		}
		if len(existing) >= a.maxServers {
			return nil, &inventory.QuotaError{
				Message: fmt.Sprintf("instance quota reached (%d of %d in use)", len(existing), a.maxServers),
			}
		}
	}

	labels := map[string]string{
		labelManagedBy:  managedByValue,
		labelServerName: req.Name,
	}
	for k, v := range req.Metadata {
		labels[labelMetaPrefix+k] = v
	}

	containerCfg := &container.Config{
		Image: req.Image,
		Env: []string{
			"KUMO_SERVER_NAME=" + req.Name,
			"KUMO_USERDATA=" + req.Userdata,
		},
		Labels: labels,
	}
	hostCfg := &container.HostConfig{
		RestartPolicy: container.RestartPolicy{Name: "unless-stopped"},
	}
	networkCfg := &network.NetworkingConfig{
		EndpointsConfig: map[string]*network.EndpointSettings{
			a.network: {},
		},
	}

	resp, err := a.client.ContainerCreate(ctx, containerCfg, hostCfg, networkCfg, nil, containerNameFor(req.Name))
	if err != nil {
		return nil, fmt.Errorf("create container for %q: %w", req.Name, err)
	}

	if err := a.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		// Best-effort cleanup
		_ = a.client.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return nil, fmt.Errorf("start container for %q: %w", req.Name, err)
	}

	inspect, err := a.client.ContainerInspect(ctx, resp.ID)
	if err != nil {
		return nil, fmt.Errorf("inspect container for %q: %w", req.Name, err)
	}

	return referenceFromInspect(inspect), nil
}

// Find returns exactly one matching server.
func (a *Adapter) Find(ctx context.Context, q inventory.Query) (*inventory.Reference, error) {
	refs, err := a.FindAll(ctx, q)
	if err != nil {
		return nil, err
	}
	switch len(refs) {
	case 0:
		return nil, inventory.ErrNotFound
	case 1:
		return refs[0], nil
	default:
		return nil, inventory.ErrAmbiguous
	}
}

// FindAll lists all managed servers matching q, ordered by the query's sort
// option (name order by default).
func (a *Adapter) FindAll(ctx context.Context, q inventory.Query) ([]*inventory.Reference, error) {
	refs, err := a.listManaged(ctx)
	if err != nil {
		return nil, err
	}
	refs = inventory.Filter(refs, q)
	inventory.SortReferences(refs, q.SearchOptions[inventory.OptionSort])
	return refs, nil
}

// Delete removes the referenced server's container. A reference that has
// already disappeared reports inventory.ErrNotFound rather than success so
// the operator learns the instance was gone.
func (a *Adapter) Delete(ctx context.Context, ref *inventory.Reference) error {
	timeout := int(stopTimeout.Seconds())
	_ = a.client.ContainerStop(ctx, ref.ID, container.StopOptions{Timeout: &timeout})

	err := a.client.ContainerRemove(ctx, ref.ID, container.RemoveOptions{
		Force:         true,
		RemoveVolumes: false,
	})
	if err != nil {
		if dockerclient.IsErrNotFound(err) {
			return inventory.ErrNotFound
		}
		return fmt.Errorf("remove container %s: %w", ref.ID, err)
	}
	return nil
}

// listManaged returns references for every kumo-managed container.
func (a *Adapter) listManaged(ctx context.Context) ([]*inventory.Reference, error) {
	containers, err := a.client.ContainerList(ctx, container.ListOptions{
		All: true,
		Filters: filters.NewArgs(
			filters.Arg("label", labelManagedBy+"="+managedByValue),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	refs := make([]*inventory.Reference, 0, len(containers))
	for _, c := range containers {
		refs = append(refs, referenceFromSummary(c))
	}
	return refs, nil
}

// --- helpers ---

func containerNameFor(serverName string) string {
	return "kumo-server-" + serverName
}

// serverNameFromLabels resolves the logical server name, falling back to the
// container name with the managed prefix stripped.
func serverNameFromLabels(labels map[string]string, containerName string) string {
	if name, ok := labels[labelServerName]; ok && name != "" {
		return name
	}
	return strings.TrimPrefix(strings.TrimPrefix(containerName, "/"), "kumo-server-")
}

// metadataFromLabels extracts the kumo.meta.* labels as instance tags.
func metadataFromLabels(labels map[string]string) map[string]string {
	meta := make(map[string]string)
	for k, v := range labels {
		if rest, ok := strings.CutPrefix(k, labelMetaPrefix); ok && rest != "" {
			meta[rest] = v
		}
	}
	return meta
}

func referenceFromSummary(c types.Container) *inventory.Reference {
	name := ""
	if len(c.Names) > 0 {
		name = c.Names[0]
	}

	addresses := make(map[string][]string)
	if c.NetworkSettings != nil {
		for netName, ep := range c.NetworkSettings.Networks {
			if ep != nil && ep.IPAddress != "" {
				addresses[netName] = append(addresses[netName], ep.IPAddress)
			}
		}
	}

	return &inventory.Reference{
		ID:        c.ID,
		Name:      serverNameFromLabels(c.Labels, name),
		Metadata:  metadataFromLabels(c.Labels),
		Addresses: addresses,
		Status:    c.State,
		Created:   time.Unix(c.Created, 0).UTC(),
	}
}

func referenceFromInspect(inspect types.ContainerJSON) *inventory.Reference {
	addresses := make(map[string][]string)
	if inspect.NetworkSettings != nil {
		for netName, ep := range inspect.NetworkSettings.Networks {
			if ep != nil && ep.IPAddress != "" {
				addresses[netName] = append(addresses[netName], ep.IPAddress)
			}
		}
	}

	status := ""
	if inspect.State != nil {
		status = inspect.State.Status
	}
	created, _ := time.Parse(time.RFC3339Nano, inspect.Created)

	labels := map[string]string{}
	if inspect.Config != nil {
		labels = inspect.Config.Labels
	}

	return &inventory.Reference{
		ID:        inspect.ID,
		Name:      serverNameFromLabels(labels, inspect.Name),
		Metadata:  metadataFromLabels(labels),
		Addresses: addresses,
		Status:    status,
		Created:   created,
	}
}
