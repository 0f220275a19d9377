// Package config defines the runtime configuration of hstack.
//
// [Config] is read from a YAML file with [LoadFile] (or built with [Default])
// and carries the address-model flags consumed by the resolver and
// synthesizer, the provisioning pool size, stack polling parameters and the
// optional template archive. [LoadTimeouts] reads Hetzner Cloud operation
// timeouts from the environment.
package config
