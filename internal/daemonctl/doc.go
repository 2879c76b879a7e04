// Package daemonctl drives the daemon process lifecycle from the CLI:
// launching a detached daemon, asking it to shut down over IPC, force-killing
// it when it does not, and building status snapshots when it is offline.
package daemonctl
