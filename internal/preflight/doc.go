// Package preflight provides readiness checks for the filesystem paths and
// network address the picker daemon depends on.
//
// These checks run in two contexts:
//   - The daemon runner calls RunAll before taking the instance lock and
//     refuses to start when a check fails.
//   - Status output (HTTP, IPC and "picker status") reports Directories so an
//     operator can see why the journal or log file is missing.
package preflight
