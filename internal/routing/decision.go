package routing

// Decision is the output of the request router.
//
// Exactly one Kind applies per request. The dispatcher executes the decision
// and must not re-derive any of it from the raw request path.

type Decision struct {
	Kind Kind `json:"kind"`

	// Endpoint is set for KindEndpoint.
	Endpoint Endpoint `json:"endpoint,omitempty"`

	// AssetPath is the absolute file path for KindAsset. It is always inside the build root.
	AssetPath string `json:"asset_path,omitempty"`

	// Path is the normalized request path (prefix stripped, trailing slash collapsed).
	Path string `json:"path"`
	// Prefixed reports whether the raw path carried the proxy prefix.
	Prefixed bool `json:"prefixed"`

	// Reason is optional and intended for internal logs/metrics.
	Reason string `json:"reason,omitempty"`
}

type Kind string

const (
	KindEndpoint    Kind = "endpoint"
	KindAsset       Kind = "asset"
	KindSPAFallback Kind = "spa_fallback"
	KindNotFound    Kind = "not_found"
)

// Endpoint names a path in the fixed endpoint table.
type Endpoint string

const (
	EndpointRoot             Endpoint = "/"
	EndpointHealth           Endpoint = "/api/health"
	EndpointStats            Endpoint = "/api/stats"
	EndpointHistory          Endpoint = "/api/history"
	EndpointRingbaLogs       Endpoint = "/api/ringba-logs"
	EndpointActivity         Endpoint = "/api/activity"
	EndpointChargeback       Endpoint = "/api/chargeback"
	EndpointChargebackExport Endpoint = "/api/chargeback/export"
	EndpointDebugBuild       Endpoint = "/api/debug/build"
)

// Endpoints is the full endpoint table.
var Endpoints = []Endpoint{
	EndpointRoot,
	EndpointHealth,
	EndpointStats,
	EndpointHistory,
	EndpointRingbaLogs,
	EndpointActivity,
	EndpointChargeback,
	EndpointChargebackExport,
	EndpointDebugBuild,
}

// Reasons attached to NotFound decisions.
const (
	ReasonTraversal     = "path_escapes_build_root"
	ReasonUnmatched     = "unmatched_route"
	ReasonBadPath       = "malformed_path"
	ReasonPrefixedRoute = "prefixed_unmatched"
)
