package handler

const (
	// APIPath is the prefix of the token protected api.
	APIPath = "/api/v1"

	// OrganizationPath is the organization scoped route prefix below APIPath.
	OrganizationPath = "/organizations/:" + OrganizationParam

	// OrganizationParam is the route parameter holding the organization id.
	OrganizationParam = "org"

	// CheckAlivePath answers load balancer health checks.
	CheckAlivePath = "/checkalive"

	// MetricsPath exposes prometheus metrics.
	MetricsPath = "/metrics"

	// ErrNilACDFatalLogMsg is used if app or cfg or db var pointer is nil.
	ErrNilACDFatalLogMsg = "app, cfg or db is nil"
)
