// Package config provides configuration for fixedseg.
//
// A single Config structure covers logging, the row-column writer, the
// segment build pipeline, segment archives and observability. Files are YAML.
// Values may reference environment variables with ${VAR_NAME}, and every key
// can be overridden by an environment variable named FIXEDSEG_<SECTION>_<KEY>,
// for example FIXEDSEG_WRITER_BACKEND=file.
//
// # Usage
//
//	cfg, err := config.Load("fixedseg.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
//
// Missing keys keep the values of NewDefault.
package config
