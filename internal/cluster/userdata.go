package cluster

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// UserDataProvider generates the boot-time user data of one instance.
type UserDataProvider interface {
	Generate(ng NodeGroup, instanceName string) (string, error)
}

// UserDataFunc adapts a function to UserDataProvider.
type UserDataFunc func(ng NodeGroup, instanceName string) (string, error)

// Generate calls f.
func (f UserDataFunc) Generate(ng NodeGroup, instanceName string) (string, error) {
	return f(ng, instanceName)
}

// Environment variables exported to every instance.
const (
	EnvCluster   = "HSTACK_CLUSTER"
	EnvNodeGroup = "HSTACK_NODE_GROUP"
	EnvInstance  = "HSTACK_INSTANCE"
	EnvProcesses = "HSTACK_PROCESSES"
)

// ScriptProfile renders user data as a shell script.
type ScriptProfile struct {
	ClusterName string
	// Env holds extra variables written to /etc/environment.
	Env map[string]string
	// Commands run after the node identity is written.
	Commands []string
}

// Generate implements UserDataProvider.
func (p ScriptProfile) Generate(ng NodeGroup, instanceName string) (string, error) {
	env := map[string]string{
		EnvCluster:   p.ClusterName,
		EnvNodeGroup: ng.Name,
		EnvInstance:  instanceName,
		EnvProcesses: strings.Join(ng.Processes, ","),
	}
	maps.Copy(env, p.Env)

	var b strings.Builder
	b.WriteString("#!/bin/sh\nset -e\n")
	fmt.Fprintf(&b, "hostnamectl set-hostname %s\n", shellQuote(instanceName))
	for _, key := range slices.Sorted(maps.Keys(env)) {
		fmt.Fprintf(&b, "echo %s >> /etc/environment\n", shellQuote(key+"="+env[key]))
	}
	for _, cmd := range p.Commands {
		b.WriteString(cmd)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// shellQuote wraps s in double quotes, escaping what the shell would expand.
func shellQuote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`")
	return `"` + r.Replace(s) + `"`
}

// CloudConfigProfile renders user data as a cloud-config document.
type CloudConfigProfile struct {
	ClusterName       string
	Packages          []string
	RunCmd            []string
	SSHAuthorizedKeys []string
}

type cloudConfig struct {
	Hostname          string          `yaml:"hostname"`
	Packages          []string        `yaml:"packages,omitempty"`
	SSHAuthorizedKeys []string        `yaml:"ssh_authorized_keys,omitempty"`
	WriteFiles        []cloudInitFile `yaml:"write_files,omitempty"`
	RunCmd            []string        `yaml:"runcmd,omitempty"`
}

type cloudInitFile struct {
	Path        string `yaml:"path"`
	Permissions string `yaml:"permissions"`
	Content     string `yaml:"content"`
}

type nodeIdentity struct {
	Cluster   string   `yaml:"cluster"`
	NodeGroup string   `yaml:"node_group"`
	Instance  string   `yaml:"instance"`
	Processes []string `yaml:"processes"`
}

// NodeIdentityPath is where cloud-config user data writes the node identity.
const NodeIdentityPath = "/etc/hstack/node.yaml"

// Generate implements UserDataProvider.
func (p CloudConfigProfile) Generate(ng NodeGroup, instanceName string) (string, error) {
	identity, err := yaml.Marshal(nodeIdentity{
		Cluster:   p.ClusterName,
		NodeGroup: ng.Name,
		Instance:  instanceName,
		Processes: ng.Processes,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal node identity: %w", err)
	}

	doc, err := yaml.Marshal(cloudConfig{
		Hostname:          instanceName,
		Packages:          p.Packages,
		SSHAuthorizedKeys: p.SSHAuthorizedKeys,
		WriteFiles: []cloudInitFile{{
			Path:        NodeIdentityPath,
			Permissions: "0644",
			Content:     string(identity),
		}},
		RunCmd: p.RunCmd,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal cloud-config: %w", err)
	}
	return "#cloud-config\n" + string(doc), nil
}
