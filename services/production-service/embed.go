// Package productionservice ships the contracts and seed data the
// production service binaries are built with.
package productionservice

import _ "embed"

// OpenAPISpec is the HTTP contract served by cmd/api
//
//go:embed api/openapi.yaml
var OpenAPISpec []byte

// AsyncAPISpec describes the CloudEvents written to the outbox
//
//go:embed api/asyncapi.yaml
var AsyncAPISpec []byte

// TrussCatalog is the truss model catalog seeded into an empty store
//
//go:embed config/truss_models.yaml
var TrussCatalog []byte
