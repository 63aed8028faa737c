// Package config loads the portmeta configuration with viper.
//
// Settings come from a YAML file and are overridden by environment variables named
// after the key path with the PORTMETA_ prefix:
//
//	backends:
//	  kafka:
//	    enabled: true
//	    brokers: [localhost:9092]
//
// is equivalent to PORTMETA_BACKENDS_KAFKA_ENABLED=true and
// PORTMETA_BACKENDS_KAFKA_BROKERS=localhost:9092.
package config
