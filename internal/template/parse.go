package template

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type document struct {
	Version     string          `json:"heat_template_version"`
	Description string          `json:"description"`
	Parameters  map[string]any  `json:"parameters"`
	Resources   json.RawMessage `json:"resources"`
}

type rawResource struct {
	Type       Kind            `json:"type"`
	Properties json.RawMessage `json:"properties"`
}

// Parse decodes a rendered document back into a Template, keeping the
// resource order of the document.
func Parse(doc []byte) (*Template, error) {
	var d document
	if err := json.Unmarshal(doc, &d); err != nil {
		return nil, fmt.Errorf("failed to decode template: %w", err)
	}
	if d.Version != Version {
		return nil, fmt.Errorf("unsupported template version %q", d.Version)
	}
	if len(d.Parameters) > 0 {
		return nil, fmt.Errorf("template parameters are not supported")
	}

	tmpl := &Template{counts: make(map[string]int)}

	dec := json.NewDecoder(bytes.NewReader(d.Resources))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to decode resources: %w", err)
	}
	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to decode resources: %w", err)
		}
		name, _ := tok.(string)
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate resource %q", name)
		}
		seen[name] = struct{}{}

		var raw rawResource
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode resource %s: %w", name, err)
		}
		f, err := fragmentFrom(name, raw)
		if err != nil {
			return nil, err
		}
		tmpl.fragments = append(tmpl.fragments, f)

		if inst, ok := f.(*Instance); ok {
			tmpl.cluster = inst.Cluster
			if _, known := tmpl.counts[inst.NodeGroup]; !known {
				tmpl.nodeGroups = append(tmpl.nodeGroups, inst.NodeGroup)
			}
			tmpl.counts[inst.NodeGroup]++
		}
	}

	for _, f := range tmpl.fragments {
		for _, r := range f.References() {
			if _, ok := seen[r]; !ok {
				return nil, fmt.Errorf("resource %s references unknown resource %q", f.ResourceName(), r)
			}
		}
	}
	return tmpl, nil
}

func fragmentFrom(name string, raw rawResource) (Fragment, error) {
	decode := func(v any) error {
		if err := json.Unmarshal(raw.Properties, v); err != nil {
			return fmt.Errorf("failed to decode properties of %s: %w", name, err)
		}
		return nil
	}

	switch raw.Type {
	case KindPort:
		var p portProperties
		if err := decode(&p); err != nil {
			return nil, err
		}
		return &Port{Name: name, Network: p.Network, SecurityGroups: p.SecurityGroups}, nil
	case KindFloatingAddress:
		var p floatingProperties
		if err := decode(&p); err != nil {
			return nil, err
		}
		return &FloatingAddress{Name: name, Pool: p.FloatingNetwork, Port: p.PortID.name()}, nil
	case KindInstance:
		var p serverProperties
		if err := decode(&p); err != nil {
			return nil, err
		}
		inst := &Instance{
			Name:           name,
			Cluster:        p.Metadata[MetadataCluster],
			NodeGroup:      p.Metadata[MetadataNodeGroup],
			Flavor:         p.Flavor,
			Image:          p.Image,
			Location:       p.AvailabilityZone,
			KeyName:        p.KeyName,
			SecurityGroups: p.SecurityGroups,
			UserData:       p.UserData.Parts,
		}
		if len(p.Networks) > 0 {
			inst.Port = p.Networks[0].Port.name()
		}
		if p.SchedulerHints != nil {
			for _, h := range p.SchedulerHints.DifferentHost {
				inst.DifferentHost = append(inst.DifferentHost, h.GetResource)
			}
		}
		if len(inst.UserData) == 0 {
			inst.UserData = nil
		}
		return inst, nil
	case KindVolume:
		var p volumeProperties
		if err := decode(&p); err != nil {
			return nil, err
		}
		return &Volume{Name: name, SizeGB: p.Size, Location: p.AvailabilityZone}, nil
	case KindVolumeAttachment:
		var p attachmentProperties
		if err := decode(&p); err != nil {
			return nil, err
		}
		return &VolumeAttachment{Name: name, Volume: p.VolumeID.name(), Instance: p.InstanceUUID.name()}, nil
	default:
		return nil, fmt.Errorf("resource %s has unsupported type %q", name, raw.Type)
	}
}
