// Package config loads paramstate.json, the configuration of the paramstate
// command and server.
//
// Values are resolved in three layers: built-in defaults, the JSON file, and
// PARAMSTATE_* environment variables (optionally seeded from a .env file).
//
// # Configuration File Structure
//
//	{
//	  "server": {"host": "localhost", "port": 7070},
//	  "storage": {
//	    "backend": "sqlite",
//	    "path": "paramstate.db",
//	    "timeout": "5s"
//	  },
//	  "params": [
//	    {"name": "name", "kind": "local", "default": "abc"},
//	    {"name": "page", "kind": "query", "encoder": "number", "default": 1, "mode": "push"},
//	    {"name": "filters", "kind": "query", "encoder": "sparse", "base64": true,
//	     "default": {"category": "all", "sort": "new"}}
//	  ],
//	  "migrations": [
//	    {"param": "name", "when": "value == 'abc'", "update": "value + 'def'"}
//	  ],
//	  "log": {"level": "info", "format": "text"},
//	  "metrics": {"enabled": true, "namespace": "paramstate"}
//	}
//
// # Environment
//
//	PARAMSTATE_SERVER_PORT=8080
//	PARAMSTATE_STORAGE_BACKEND=s3
//	PARAMSTATE_STORAGE_S3_BUCKET=app-state
//	PARAMSTATE_LOG_LEVEL=debug
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    errors.PrintError(err)
//	    os.Exit(1)
//	}
//	fmt.Println("Listening on", cfg.Address())
package config
