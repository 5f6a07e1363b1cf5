// Package config provides centralized configuration management for the
// shareholding tracker. It handles loading configuration from multiple
// sources, validation, and resolution of on-disk paths.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority), including a .env file
//	2. A YAML configuration file (config.yaml, configs/config.yaml or CCASS_CONFIG_FILE)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern CCASS_<SECTION>_<KEY>:
//
//	CCASS_SERVER_PORT=8080
//	CCASS_STORE_DB_PATH=/var/lib/ccass/ccass.db
//	CCASS_SCRAPER_HEADLESS=false
//	CCASS_SCRAPER_REMOTE_URL=ws://127.0.0.1:9222/devtools/browser/...
//	CCASS_PREPOPULATE_WORKERS=8
//	CCASS_LOGGING_LEVEL=debug
//
// # Paths
//
// Relative paths are anchored at the application home, which is CCASS_HOME
// when set and the executable's directory otherwise. See GetPaths.
package config
