package settings

// PublicSettings is the subset of the configuration safe to hand out over
// the API. GitVersion is blanked unless ExposeVersion is set.
type PublicSettings struct {
	Title         string `json:"title"`
	ExposeVersion bool   `json:"exposeVersion"`
	GitVersion    string `json:"gitVersion,omitempty"`
}
