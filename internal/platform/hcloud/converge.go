package hcloud

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/go-logr/logr"
	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/hstack/internal/stack"
	"github.com/imamik/hstack/internal/template"
	"github.com/imamik/hstack/internal/util/async"
	"github.com/imamik/hstack/internal/util/labels"
	"github.com/imamik/hstack/internal/util/naming"
)

// PlacementGroupType is the resource type of the spread placement groups
// derived from anti-affinity hints.
const PlacementGroupType = "Hetzner::PlacementGroup"

// deleteOrder lists resource types in the order they are deleted.
var deleteOrder = map[string]int{
	string(template.KindFloatingAddress):  0,
	string(template.KindVolumeAttachment): 1,
	string(template.KindVolume):           2,
	string(template.KindInstance):         3,
	string(template.KindPort):             4,
	PlacementGroupType:                    5,
}

// convergence is one create or update pass over a stack.
type convergence struct {
	e         *StackEngine
	rec       *stackRecord
	tmpl      *template.Template
	stackName string
	known     map[string]stack.Resource

	mu        sync.Mutex
	created   []stack.Resource
	networks  map[string]int64
	placement map[string]int64
	servers   map[string]*hcloud.Server
	volumes   map[string]*hcloud.Volume
	// newServers marks servers created by this pass.
	newServers map[string]bool
}

func newConvergence(e *StackEngine, rec *stackRecord, tmpl *template.Template, known map[string]stack.Resource) *convergence {
	return &convergence{
		e:          e,
		rec:        rec,
		tmpl:       tmpl,
		stackName:  rec.name(),
		known:      known,
		networks:   make(map[string]int64),
		placement:  make(map[string]int64),
		servers:    make(map[string]*hcloud.Server),
		volumes:    make(map[string]*hcloud.Volume),
		newServers: make(map[string]bool),
	}
}

// fragments splits a template by kind, keeping emission order.
type fragments struct {
	ports       []*template.Port
	floating    []*template.FloatingAddress
	instances   []*template.Instance
	volumes     []*template.Volume
	attachments []*template.VolumeAttachment
}

func splitFragments(tmpl *template.Template) fragments {
	var f fragments
	for _, fr := range tmpl.Fragments() {
		switch v := fr.(type) {
		case *template.Port:
			f.ports = append(f.ports, v)
		case *template.FloatingAddress:
			f.floating = append(f.floating, v)
		case *template.Instance:
			f.instances = append(f.instances, v)
		case *template.Volume:
			f.volumes = append(f.volumes, v)
		case *template.VolumeAttachment:
			f.attachments = append(f.attachments, v)
		}
	}
	return f
}

// run creates or adopts every resource of the template.
func (c *convergence) run(ctx context.Context) error {
	f := splitFragments(c.tmpl)

	ports := make(map[string]*template.Port, len(f.ports))
	for _, p := range f.ports {
		ports[p.Name] = p
	}

	if err := c.ensureNetworks(ctx, f.ports); err != nil {
		return err
	}
	if err := c.ensurePlacementGroups(ctx, f.instances); err != nil {
		return err
	}

	tasks := make([]async.Task, 0, len(f.instances))
	for _, inst := range f.instances {
		tasks = append(tasks, async.Task{
			Name: inst.Name,
			Func: func(ctx context.Context) error {
				return c.ensureServer(ctx, inst, ports[inst.Port])
			},
		})
	}
	if err := async.RunParallel(ctx, tasks, c.e.parallelism); err != nil {
		return fmt.Errorf("failed to converge instances: %w", err)
	}

	byPort := make(map[string]*template.Instance)
	for _, inst := range f.instances {
		if inst.Port != "" {
			byPort[inst.Port] = inst
		}
	}
	for _, p := range f.ports {
		inst, ok := byPort[p.Name]
		if !ok {
			continue
		}
		server := c.servers[inst.Name]
		c.record(p.Name, string(template.KindPort), portID(server.ID, c.networks[p.Network]), c.newServers[inst.Name])
	}

	for _, fl := range f.floating {
		if err := c.ensureFloatingIP(ctx, fl, byPort[fl.Port]); err != nil {
			return err
		}
	}
	for _, v := range f.volumes {
		if err := c.ensureVolume(ctx, v); err != nil {
			return err
		}
	}
	for _, a := range f.attachments {
		if err := c.ensureAttachment(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (c *convergence) labelsFor(name, nodeGroup string) map[string]string {
	return labels.NewLabelBuilder(c.tmpl.Cluster()).
		WithStack(c.stackName).
		WithResource(name).
		WithNodeGroup(nodeGroup).
		Build()
}

func (c *convergence) location(loc string) string {
	if loc != "" {
		return loc
	}
	return c.e.location
}

func (c *convergence) ensureNetworks(ctx context.Context, ports []*template.Port) error {
	for _, p := range ports {
		if _, ok := c.networks[p.Network]; ok {
			continue
		}
		nw, err := c.e.client.EnsureNetwork(ctx, p.Network, c.e.ipRange, c.e.zone,
			labels.NewLabelBuilder(c.tmpl.Cluster()).Build())
		if err != nil {
			return fmt.Errorf("failed to ensure network %s: %w", p.Network, err)
		}
		c.networks[p.Network] = nw.ID
	}
	return nil
}

// ensurePlacementGroups creates one spread placement group per connected
// set of instances linked by different-host hints.
func (c *convergence) ensurePlacementGroups(ctx context.Context, instances []*template.Instance) error {
	for _, members := range antiAffinitySets(instances) {
		name := naming.PlacementGroup(c.stackName, members[0])
		if len(members) > MaxSpreadGroupSize {
			return fmt.Errorf("anti-affinity set %s has %d instances, a spread placement group holds at most %d",
				name, len(members), MaxSpreadGroupSize)
		}
		pg, created, err := c.e.client.EnsurePlacementGroup(ctx, name, c.labelsFor(name, ""))
		if err != nil {
			return fmt.Errorf("failed to ensure placement group %s: %w", name, err)
		}
		c.e.metrics.RecordEngineOperation(PlacementGroupType, "ensure")
		c.record(name, PlacementGroupType, fmt.Sprint(pg.ID), created)
		for _, m := range members {
			c.placement[m] = pg.ID
		}
	}
	return nil
}

// antiAffinitySets returns the connected components of the different-host
// graph with at least two members. Components and members follow emission order.
func antiAffinitySets(instances []*template.Instance) [][]string {
	parent := make(map[string]string, len(instances))
	var find func(string) string
	find = func(x string) string {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	for _, inst := range instances {
		parent[inst.Name] = inst.Name
	}
	for _, inst := range instances {
		for _, peer := range inst.DifferentHost {
			if _, ok := parent[peer]; !ok {
				continue
			}
			ra, rb := find(inst.Name), find(peer)
			if ra != rb {
				parent[rb] = ra
			}
		}
	}

	index := make(map[string]int)
	var sets [][]string
	for _, inst := range instances {
		root := find(inst.Name)
		i, ok := index[root]
		if !ok {
			i = len(sets)
			index[root] = i
			sets = append(sets, nil)
		}
		sets[i] = append(sets[i], inst.Name)
	}
	return slices.DeleteFunc(sets, func(s []string) bool { return len(s) < 2 })
}

func (c *convergence) ensureServer(ctx context.Context, inst *template.Instance, port *template.Port) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("instance", inst.Name)

	existing, err := c.e.client.GetServer(ctx, inst.Name)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.Labels[labels.KeyStack] != c.stackName {
			return fmt.Errorf("server %s exists and is not owned by stack %s", inst.Name, c.stackName)
		}
		log.V(1).Info("server exists, keeping it", "id", existing.ID)
		c.recordServer(inst.Name, existing, false)
		return nil
	}

	opts := ServerCreateOpts{
		Name:       inst.Name,
		Image:      inst.Image,
		ServerType: inst.Flavor,
		Location:   c.location(inst.Location),
		UserData:   inst.UserDataText(),
		Labels:     c.labelsFor(inst.Name, inst.NodeGroup),
		Firewalls:  securityGroups(port, inst),
	}
	if inst.KeyName != "" {
		opts.SSHKeys = []string{inst.KeyName}
	}
	c.mu.Lock()
	if pg, ok := c.placement[inst.Name]; ok {
		opts.PlacementGroupID = &pg
	}
	if port != nil {
		opts.NetworkID = c.networks[port.Network]
	}
	c.mu.Unlock()

	server, err := c.e.client.CreateServer(ctx, opts)
	if err != nil {
		return err
	}
	c.e.metrics.RecordEngineOperation(string(template.KindInstance), "create")
	log.Info("server created", "id", server.ID)
	c.recordServer(inst.Name, server, true)
	return nil
}

// securityGroups merges port and instance security groups, first seen first.
func securityGroups(port *template.Port, inst *template.Instance) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(names []string) {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	if port != nil {
		add(port.SecurityGroups)
	}
	add(inst.SecurityGroups)
	return out
}

func (c *convergence) recordServer(name string, server *hcloud.Server, created bool) {
	c.mu.Lock()
	c.servers[name] = server
	c.newServers[name] = created
	c.mu.Unlock()
	c.record(name, string(template.KindInstance), fmt.Sprint(server.ID), created)
}

func (c *convergence) ensureFloatingIP(ctx context.Context, fl *template.FloatingAddress, inst *template.Instance) error {
	if inst == nil {
		return fmt.Errorf("floating IP %s: no instance uses port %s", fl.Name, fl.Port)
	}
	server := c.servers[inst.Name]

	fip, created, err := c.e.client.EnsureFloatingIP(ctx, fl.Name, c.location(fl.Pool), c.labelsFor(fl.Name, inst.NodeGroup))
	if err != nil {
		return fmt.Errorf("failed to ensure floating IP %s: %w", fl.Name, err)
	}
	if err := c.e.client.AssignFloatingIP(ctx, fip, server.ID); err != nil {
		return err
	}
	c.e.metrics.RecordEngineOperation(string(template.KindFloatingAddress), "ensure")
	c.record(fl.Name, string(template.KindFloatingAddress), fmt.Sprint(fip.ID), created)
	return nil
}

func (c *convergence) ensureVolume(ctx context.Context, v *template.Volume) error {
	vol, created, err := c.e.client.EnsureVolume(ctx, v.Name, v.SizeGB, c.location(v.Location), c.labelsFor(v.Name, ""))
	if err != nil {
		return fmt.Errorf("failed to ensure volume %s: %w", v.Name, err)
	}
	c.volumes[v.Name] = vol
	c.e.metrics.RecordEngineOperation(string(template.KindVolume), "ensure")
	c.record(v.Name, string(template.KindVolume), fmt.Sprint(vol.ID), created)
	return nil
}

func (c *convergence) ensureAttachment(ctx context.Context, a *template.VolumeAttachment) error {
	vol, ok := c.volumes[a.Volume]
	if !ok {
		return fmt.Errorf("attachment %s: volume %s was not converged", a.Name, a.Volume)
	}
	server, ok := c.servers[a.Instance]
	if !ok {
		return fmt.Errorf("attachment %s: instance %s was not converged", a.Name, a.Instance)
	}
	attached := vol.Server != nil && vol.Server.ID == server.ID
	if err := c.e.client.AttachVolume(ctx, vol, server.ID); err != nil {
		return err
	}
	c.e.metrics.RecordEngineOperation(string(template.KindVolumeAttachment), "ensure")
	c.record(a.Name, string(template.KindVolumeAttachment), fmt.Sprintf("%d-%d", vol.ID, server.ID), !attached)
	return nil
}

// record stores a converged resource. Resources this pass created are
// remembered for rollback; reused ones are left alone.
func (c *convergence) record(name, kind, physicalID string, created bool) {
	res := stack.Resource{
		LogicalName: name,
		PhysicalID:  physicalID,
		Type:        kind,
		Status:      ResourceCreateComplete,
	}
	c.rec.setResource(res)
	if !created {
		return
	}
	c.mu.Lock()
	c.created = append(c.created, res)
	c.mu.Unlock()
}

// prune deletes resources known before this pass that the new template no
// longer defines.
func (c *convergence) prune(ctx context.Context) error {
	var stale []stack.Resource
	for name, res := range c.known {
		if !c.converged(name) {
			stale = append(stale, res)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	logr.FromContextOrDiscard(ctx).Info("pruning resources dropped from the template", "count", len(stale))
	return c.deleteAll(ctx, stale)
}

// converged reports whether this pass touched the resource.
func (c *convergence) converged(name string) bool {
	if _, ok := c.tmpl.Fragment(name); ok {
		return true
	}
	return slices.Contains(c.placementGroupNames(), name)
}

func (c *convergence) placementGroupNames() []string {
	var names []string
	for _, members := range antiAffinitySets(splitFragments(c.tmpl).instances) {
		names = append(names, naming.PlacementGroup(c.stackName, members[0]))
	}
	return names
}

// rollback deletes the resources created by this pass. Failures are logged.
func (c *convergence) rollback(ctx context.Context) {
	c.mu.Lock()
	created := slices.Clone(c.created)
	c.mu.Unlock()
	if len(created) == 0 {
		return
	}
	log := logr.FromContextOrDiscard(ctx).WithValues("stack", c.stackName)
	log.Info("rolling back created resources", "count", len(created))
	if err := c.deleteAll(ctx, created); err != nil {
		log.Error(err, "rollback incomplete")
	}
}

// deleteAll deletes resources in dependency order and forgets them.
func (c *convergence) deleteAll(ctx context.Context, resources []stack.Resource) error {
	sort.SliceStable(resources, func(i, j int) bool {
		return deleteOrder[resources[i].Type] < deleteOrder[resources[j].Type]
	})

	var errs []error
	for _, res := range resources {
		if err := c.deleteResource(ctx, res); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", res.LogicalName, err))
			continue
		}
		c.rec.removeResource(res.LogicalName)
	}
	return errors.Join(errs...)
}

func (c *convergence) deleteResource(ctx context.Context, res stack.Resource) error {
	if res.PhysicalID == "" {
		return nil
	}
	var err error
	switch res.Type {
	case string(template.KindFloatingAddress):
		err = c.e.client.DeleteFloatingIP(ctx, res.PhysicalID)
	case string(template.KindVolume):
		err = c.e.client.DeleteVolume(ctx, res.PhysicalID)
	case string(template.KindInstance):
		err = c.e.client.DeleteServer(ctx, res.PhysicalID)
	case PlacementGroupType:
		err = c.e.client.DeletePlacementGroup(ctx, res.PhysicalID)
	default:
		// Ports and attachments go away with their server or volume.
		return nil
	}
	if err == nil {
		c.e.metrics.RecordEngineOperation(res.Type, "delete")
	}
	return err
}
