package dto

// QueryRequest is one call to the query gateway
type QueryRequest struct {
	Action  string         `json:"action"`
	Table   string         `json:"table,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Where   map[string]any `json:"where,omitempty"`
	SQL     string         `json:"sql,omitempty"`
	Params  []any          `json:"params,omitempty"`
	Limit   int            `json:"limit,omitempty"`
	AppKey  string         `json:"app_key,omitempty"`
	UserKey string         `json:"user_key,omitempty"`
}

// QueryResponse is the success envelope of the query gateway
type QueryResponse struct {
	Status    string      `json:"status"`
	LatencyMS int64       `json:"latency_ms"`
	TS        int64       `json:"ts"`
	Action    string      `json:"action"`
	Auth      AuthInfo    `json:"auth"`
	Result    QueryResult `json:"result"`
	Meta      QueryMeta   `json:"meta"`
}

// AuthInfo names the verified caller
type AuthInfo struct {
	App  string `json:"app"`
	User string `json:"user"`
	Role string `json:"role"`
}

type QueryResult struct {
	Results []map[string]any `json:"results"`
	Changes int64            `json:"changes"`
}

type QueryMeta struct {
	Success      bool  `json:"success"`
	RowsAffected int64 `json:"rows_affected"`
	RowsReturned int64 `json:"rows_returned"`
}

// PingResponse is returned by the liveness endpoint
type PingResponse struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	TS        int64  `json:"ts"`
	Message   string `json:"message"`
	Endpoint  string `json:"endpoint"`
}
