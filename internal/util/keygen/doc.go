// Package keygen generates SSH key pairs for cluster instances.
//
// Keys are produced in PEM format (private) and OpenSSH authorized_keys
// format (public), ready to be registered as the cluster key pair on
// Hetzner Cloud. [KeyPair.Save] writes both halves next to each other.
package keygen
