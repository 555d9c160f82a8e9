// Package config loads the indexing configuration from a YAML or TOML file.
//
// Before decoding, .env files are loaded into the environment and ${VAR}
// references in the file are replaced with environment values, so keys and
// connection strings can stay out of the file itself:
//
//	openai_api_key: ${AZURE_OPENAI_KEY}
//	doc_intel_endpoints_keys:
//	  - endpoint: https://east.cognitiveservices.azure.com/
//	    key: ${DOC_INTEL_KEY_EAST}
package config
