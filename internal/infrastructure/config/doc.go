// Package config handles loading and validating Hood Bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Loading an optional .env file beside the config file
//   - Overriding with HOODBRIDGE_* environment variables
//   - Validation of required fields
//
// Security Considerations:
//   - The Miele bearer token should be supplied via HOODBRIDGE_MIELE_TOKEN or .env
//   - The config file and .env should have restricted permissions (0600)
//   - MieleConfig.String masks the token; log that, never the raw struct
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Miele)
package config
