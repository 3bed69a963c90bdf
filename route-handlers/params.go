package routehandlers

// URL parameter names shared with the router.
const (
	ParamIndex   = "index"
	ParamOrdinal = "ordinal"
	ParamVerse   = "verse"
)
