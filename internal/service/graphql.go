package service

// graphqlRequest is the envelope both graphql endpoints accept. Responses
// come back as {data: ...}; business rejections arrive as a top-level
// errors array, which the rest client surfaces as a semantic failure.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type resultPayload struct {
	Result bool `json:"result"`
}
