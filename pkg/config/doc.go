// Package config provides application configuration management.
//
// # Overview
//
// This package loads and validates configuration from three layers, each
// overriding the last: built-in defaults, an optional YAML file named by
// PAGEGATE_CONFIG_FILE, and environment variables.
//
// # Configuration Structure
//
// Backend settings:
//
//	PAGEGATE_API_URL="http://localhost:8000/api"
//	PAGEGATE_API_TIMEOUT="30s"
//
// Session settings:
//
//	PAGEGATE_STORE_TYPE="file"  # memory, file, redis
//	PAGEGATE_SESSION_FILE="~/.pagegate/session.json"
//	PAGEGATE_REDIS_URL="redis://localhost:6379"
//	PAGEGATE_SESSION_ID="default"
//	PAGEGATE_IDLE_TIMEOUT="1h"
//	PAGEGATE_REFRESH_THRESHOLD="30m"
//
// Observability settings:
//
//	PAGEGATE_LOG_LEVEL="info"  # debug, info, warn, error
//	PAGEGATE_METRICS_ENABLED="true"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Backend: %s\n", cfg.Backend.BaseURL)
//	fmt.Printf("Store: %s\n", cfg.Session.StoreType)
package config
