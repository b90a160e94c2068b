// Package config provides centralized configuration management for the
// procurement analytics service.
//
// # Configuration Sources
//
// Configuration is resolved in three layers, later layers winning:
//
//	1. Default() values
//	2. A YAML file (SPEND_CONFIG_FILE, or config.yaml / configs/config.yaml)
//	3. Environment variables
//
// # Environment Variables
//
// Variables follow the pattern SPEND_<SECTION>_<FIELD>:
//
//	SPEND_SERVER_PORT=8501
//	SPEND_DATA_DATA_PATH=/data/PO_Data.csv
//	SPEND_ANALYSIS_MIN_SUPPLIERS_FOR_CONSOLIDATION=3
//	SPEND_CACHE_CACHE_TTL=1h
//	SPEND_LOGGING_LEVEL=debug
//
// envconfig falls back to the unprefixed field name, so the variables used
// by the original dashboard deployment keep working unchanged:
//
//	DATA_PATH=/data/PO_Data.csv
//	MIN_SUPPLIERS_FOR_CONSOLIDATION=3
//	MIN_SPEND_FOR_CONSOLIDATION=100000
//	DEFAULT_DISCOUNT_PERCENT=10
//
// # Column Mapping
//
// ColumnsConfig names the source headers for each semantic field. The
// loader resolves them once per file; nothing downstream looks columns up
// by header text.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Tests should start from config.Default() which needs no environment.
package config
