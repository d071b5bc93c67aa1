package commands

const (
	_etc = "/usr/local/etc/com.github.farmledger"
	_var = "/usr/local/var/com.github.farmledger"

	DEFAULT_WORKDIR     = _var + "/inventory-sheets"
	DEFAULT_CONFIG      = _etc + "/inventory-sheets.yaml"
	DEFAULT_CREDENTIALS = _etc + "/inventory-sheets/.google/credentials.json"
)
