// Package api defines the wire-format types shared by the HTTP server and
// the IPC layer, and the ItemService that backs both.
//
// ItemService is the validation boundary. Query parameters are clamped
// (offset to zero or more, limit to the configured default and maximum) and
// mutation payloads must carry positive integral JSON numbers. Anything else
// fails with an error wrapping services.ErrValidation, which the transports
// map to 400 or an RPC error. Accepted mutations are queued, not applied, so
// a success response only means the operation reached its lane.
//
// DTOs use camelCase JSON tags, except the item page and mutation payloads,
// which keep the field names browser clients already consume.
package api
