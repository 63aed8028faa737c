package registry

import "github.com/aalemi-dev/portmeta/metadata"

// pushRequest is the body of POST /types/{id}/fields.
type pushRequest struct {
	TypeName string           `json:"type_name"`
	Fields   []metadata.Field `json:"fields"`
}

// pushResponse is returned for an accepted push.
type pushResponse struct {
	Version int64 `json:"version"`
	Added   int   `json:"added"`
}

// typesResponse is the body of GET /types.
type typesResponse struct {
	Version int64                 `json:"version"`
	Types   []metadata.TypeUpdate `json:"types"`
}

// errorResponse is the body of every non-2xx authority response.
type errorResponse struct {
	Error    string          `json:"error"`
	Existing *metadata.Field `json:"existing,omitempty"`
	Incoming *metadata.Field `json:"incoming,omitempty"`
}
