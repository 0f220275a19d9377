package template

import (
	"bytes"
	"encoding/json"
	"fmt"

	"sigs.k8s.io/yaml"
)

// Version is the orchestration template format version.
const Version = "2014-10-16"

// Metadata keys embedded into instance fragments.
const (
	MetadataCluster   = "hstack_cluster"
	MetadataNodeGroup = "hstack_node_group"
)

type resourceRef struct {
	GetResource string `json:"get_resource"`
}

func ref(name string) *resourceRef {
	if name == "" {
		return nil
	}
	return &resourceRef{GetResource: name}
}

func (r *resourceRef) name() string {
	if r == nil {
		return ""
	}
	return r.GetResource
}

// listJoin renders as {"list_join": [sep, [parts...]]}.
type listJoin struct {
	Sep   string
	Parts []string
}

func (l listJoin) MarshalJSON() ([]byte, error) {
	parts := l.Parts
	if parts == nil {
		parts = []string{}
	}
	return marshal(map[string][]any{"list_join": {l.Sep, parts}})
}

func (l *listJoin) UnmarshalJSON(data []byte) error {
	var raw map[string][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	args, ok := raw["list_join"]
	if !ok || len(args) != 2 {
		return fmt.Errorf("expected list_join with two arguments")
	}
	if err := json.Unmarshal(args[0], &l.Sep); err != nil {
		return err
	}
	return json.Unmarshal(args[1], &l.Parts)
}

type portProperties struct {
	Network        string   `json:"network"`
	SecurityGroups []string `json:"security_groups,omitempty"`
}

type floatingProperties struct {
	FloatingNetwork string       `json:"floating_network"`
	PortID          *resourceRef `json:"port_id"`
}

type serverNetwork struct {
	Port *resourceRef `json:"port"`
}

type schedulerHints struct {
	DifferentHost []resourceRef `json:"different_host"`
}

type serverProperties struct {
	Name             string            `json:"name"`
	Flavor           string            `json:"flavor"`
	Image            string            `json:"image"`
	AvailabilityZone string            `json:"availability_zone,omitempty"`
	KeyName          string            `json:"key_name,omitempty"`
	Networks         []serverNetwork   `json:"networks,omitempty"`
	SecurityGroups   []string          `json:"security_groups,omitempty"`
	SchedulerHints   *schedulerHints   `json:"scheduler_hints,omitempty"`
	Metadata         map[string]string `json:"metadata"`
	UserDataFormat   string            `json:"user_data_format"`
	UserData         listJoin          `json:"user_data"`
}

type volumeProperties struct {
	Name             string `json:"name"`
	Size             int    `json:"size"`
	AvailabilityZone string `json:"availability_zone,omitempty"`
}

type attachmentProperties struct {
	InstanceUUID *resourceRef `json:"instance_uuid"`
	VolumeID     *resourceRef `json:"volume_id"`
}

type resource struct {
	Type       Kind `json:"type"`
	Properties any  `json:"properties"`
}

func properties(f Fragment) (any, error) {
	switch f := f.(type) {
	case *Port:
		return portProperties{Network: f.Network, SecurityGroups: f.SecurityGroups}, nil
	case *FloatingAddress:
		return floatingProperties{FloatingNetwork: f.Pool, PortID: ref(f.Port)}, nil
	case *Instance:
		props := serverProperties{
			Name:             f.Name,
			Flavor:           f.Flavor,
			Image:            f.Image,
			AvailabilityZone: f.Location,
			KeyName:          f.KeyName,
			SecurityGroups:   f.SecurityGroups,
			Metadata: map[string]string{
				MetadataCluster:   f.Cluster,
				MetadataNodeGroup: f.NodeGroup,
			},
			UserDataFormat: "RAW",
			UserData:       listJoin{Sep: "\n", Parts: f.UserData},
		}
		if f.Port != "" {
			props.Networks = []serverNetwork{{Port: ref(f.Port)}}
		}
		if len(f.DifferentHost) > 0 {
			hints := &schedulerHints{}
			for _, peer := range f.DifferentHost {
				hints.DifferentHost = append(hints.DifferentHost, resourceRef{GetResource: peer})
			}
			props.SchedulerHints = hints
		}
		return props, nil
	case *Volume:
		return volumeProperties{Name: f.Name, Size: f.SizeGB, AvailabilityZone: f.Location}, nil
	case *VolumeAttachment:
		return attachmentProperties{InstanceUUID: ref(f.Instance), VolumeID: ref(f.Volume)}, nil
	default:
		return nil, fmt.Errorf("unknown fragment type %T", f)
	}
}

// Render serializes the template as an orchestration document. Resources
// keep their emission order.
func Render(t *Template) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"heat_template_version":`)
	writeJSON(&buf, Version)
	buf.WriteString(`,"description":`)
	writeJSON(&buf, "hstack cluster "+t.cluster)
	buf.WriteString(`,"parameters":{},"resources":{`)

	for i, f := range t.fragments {
		props, err := properties(f)
		if err != nil {
			return nil, err
		}
		body, err := marshal(resource{Type: f.Kind(), Properties: props})
		if err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", f.ResourceName(), err)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSON(&buf, f.ResourceName())
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteString("}}")

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("failed to format template: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// RenderYAML renders the template and converts the document to YAML.
func RenderYAML(t *Template) ([]byte, error) {
	doc, err := Render(t)
	if err != nil {
		return nil, err
	}
	out, err := yaml.JSONToYAML(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert template to yaml: %w", err)
	}
	return out, nil
}

// marshal encodes v without HTML escaping so user data stays readable.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// writeJSON writes a JSON string; encoding a string cannot fail.
func writeJSON(buf *bytes.Buffer, s string) {
	b, _ := marshal(s)
	buf.Write(b)
}
