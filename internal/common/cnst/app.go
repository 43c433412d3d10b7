package cnst

const (
	AppName           = "rowgate"
	CommandName       = "rowgate"
	DefaultConfigFile = "rowgate.yaml"
)
