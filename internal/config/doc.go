// Package config handles configuration loading for chillman.
//
// # Overview
//
// Configuration comes from an optional YAML or TOML file, then CHILLMAN_*
// environment variables. Anything left unset keeps the value from Default.
//
// # Configuration File
//
// The format follows the extension: .yaml/.yml or .toml.
//
//	database:
//	  path: "/var/lib/chillman/chillman.db"
//	  busy_timeout: "5s"
//
//	logging:
//	  level: "info"    # debug, info, warn, error
//	  format: "text"   # text, json
//
//	bootstrap:
//	  admin_username: "admin"
//	  admin_password: "${CHILLMAN_SEED_PASSWORD}"
//
//	security:
//	  bcrypt_cost: 12
//
// # Environment Variable Expansion
//
// ${VAR_NAME} anywhere in the file is replaced by the variable's value,
// or the empty string when unset.
//
// # Environment Overrides
//
//	CHILLMAN_DB_PATH, CHILLMAN_DB_BUSY_TIMEOUT
//	CHILLMAN_LOG_LEVEL, CHILLMAN_LOG_FORMAT
//	CHILLMAN_ADMIN_USERNAME, CHILLMAN_ADMIN_PASSWORD
//	CHILLMAN_BCRYPT_COST
//
// The bootstrap administrator is only written when the users table is
// empty; changing it later has no effect on an existing store.
package config
