// Package daemonrun wires configuration, logging, the batch journal, the
// workflow manager, the HTTP API and the IPC socket into one daemon process.
package daemonrun
