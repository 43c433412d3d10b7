package dto

import "time"

// AdminRequest carries the fields of every admin console action; each action
// reads the ones it needs.
type AdminRequest struct {
	Action         string `json:"action"`
	AppID          string `json:"app_id,omitempty"`
	AppName        string `json:"app_name,omitempty"`
	UserID         string `json:"user_id,omitempty"`
	Username       string `json:"username,omitempty"`
	Role           string `json:"role,omitempty"`
	TableName      string `json:"table_name,omitempty"`
	PermissionType string `json:"permission_type,omitempty"`
}

// AdminResponse is the success envelope of the admin console. Fields not set
// by an action are omitted.
type AdminResponse struct {
	Status         string `json:"status"`
	Message        string `json:"message,omitempty"`
	Data           any    `json:"data,omitempty"`
	AppID          string `json:"app_id,omitempty"`
	AppKey         string `json:"app_key,omitempty"`
	UserID         string `json:"user_id,omitempty"`
	UserKey        string `json:"user_key,omitempty"`
	Role           string `json:"role,omitempty"`
	TableName      string `json:"table_name,omitempty"`
	PermissionType string `json:"permission_type,omitempty"`
	NewKey         string `json:"new_key,omitempty"`
}

// UserInfo is a user row joined with its effective role
type UserInfo struct {
	UserID    string    `json:"user_id"`
	UserKey   string    `json:"user_key"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditEvent describes one successful admin mutation
type AuditEvent struct {
	ID        string    `json:"id,omitempty"`
	Action    string    `json:"action"`
	AppID     string    `json:"app_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	TableName string    `json:"table_name,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	TraceID   string    `json:"trace_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
