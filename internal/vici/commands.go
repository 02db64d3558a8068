package vici

// Command names understood by the daemon.
const (
	CmdVersion        = "version"
	CmdStats          = "stats"
	CmdReloadSettings = "reload-settings"
	CmdInitiate       = "initiate"
	CmdTerminate      = "terminate"
	CmdRekey          = "rekey"
	CmdInstall        = "install"
	CmdUninstall      = "uninstall"
	CmdListSAs        = "list-sas"
	CmdListPolicies   = "list-policies"
	CmdListConns      = "list-conns"
	CmdGetConns       = "get-conns"
	CmdListCerts      = "list-certs"
	CmdLoadConn       = "load-conn"
	CmdUnloadConn     = "unload-conn"
	CmdLoadCert       = "load-cert"
	CmdLoadKey        = "load-key"
	CmdLoadShared     = "load-shared"
	CmdClearCreds     = "clear-creds"
	CmdLoadPool       = "load-pool"
	CmdUnloadPool     = "unload-pool"
	CmdGetPools       = "get-pools"
)

// Event stream names.
const (
	EventControlLog = "control-log"
	EventListSA     = "list-sa"
	EventListPolicy = "list-policy"
	EventListConn   = "list-conn"
	EventListCert   = "list-cert"
)
