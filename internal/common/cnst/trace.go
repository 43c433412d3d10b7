package cnst

// Tracer names used across the services
const (
	TraceGateway = "rowgate/gateway"
	TraceConsole = "rowgate/console"
)

// Common span names
const (
	SpanGatewayQuery = "gateway.query"
	SpanConsoleOp    = "console.op"
)

// Common attribute keys
const (
	AttrAction   = "rowgate.action"
	AttrTable    = "rowgate.table"
	AttrApp      = "rowgate.app"
	AttrUser     = "rowgate.user"
	AttrRole     = "rowgate.role"
	AttrDecision = "rowgate.decision"
	AttrRows     = "rowgate.rows"
)
