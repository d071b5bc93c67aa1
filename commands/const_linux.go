package commands

const (
	_etc = "/usr/local/etc/inventory-sheets"
	_var = "/usr/local/var/inventory-sheets"

	DEFAULT_WORKDIR     = _var
	DEFAULT_CONFIG      = _etc + "/inventory-sheets.yaml"
	DEFAULT_CREDENTIALS = _etc + "/.google/credentials.json"
)
