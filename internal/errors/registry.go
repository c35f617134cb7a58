package errors

import (
	"slices"
	"strings"
)

// Template defines a registered error code.
type Template struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// ============================================
	// Configuration Errors (E200-E299)
	// ============================================

	"E200": {
		Category: CategoryConfig,
		Message:  "paramstate.json not found or not readable",
		Detail:   "The configuration file is missing or could not be read. Check the path and its permissions.",
	},
	"E201": {
		Category: CategoryConfig,
		Message:  "Invalid paramstate.json",
		Detail:   "The paramstate.json configuration file is not valid JSON.",
	},
	"E202": {
		Category: CategoryConfig,
		Message:  "Unknown storage backend",
		Detail:   "storage.backend must be one of memory, sqlite, s3 or nats.",
	},
	"E203": {
		Category: CategoryConfig,
		Message:  "Missing required configuration",
		Detail:   "A value required by the selected storage backend is not set.",
	},
	"E204": {
		Category: CategoryConfig,
		Message:  "Invalid port number",
		Detail:   "server.port must be between 1 and 65535.",
	},
	"E205": {
		Category: CategoryConfig,
		Message:  "Invalid environment override",
		Detail:   "A PARAMSTATE_* environment variable could not be parsed.",
	},
	"E206": {
		Category: CategoryConfig,
		Message:  "Invalid parameter definition",
		Detail:   "Every parameter needs a unique name, a known kind and a default value of that kind.",
	},

	// ============================================
	// Storage Errors (E300-E399)
	// ============================================

	"E300": {
		Category: CategoryStorage,
		Message:  "Storage backend unavailable",
		Detail:   "The configured storage backend could not be opened or reached.",
	},
	"E301": {
		Category: CategoryStorage,
		Message:  "Storage read failed",
		Detail:   "Reading a value from the storage backend failed.",
	},
	"E302": {
		Category: CategoryStorage,
		Message:  "Storage write failed",
		Detail:   "Writing a value to the storage backend failed.",
	},
	"E303": {
		Category: CategoryStorage,
		Message:  "Key not found",
		Detail:   "The storage backend holds no value under this key.",
	},

	// ============================================
	// Migration Errors (E400-E499)
	// ============================================

	"E400": {
		Category: CategoryMigration,
		Message:  "Invalid migration rule",
		Detail:   "A migration rule could not be compiled. Rules need a param and an update expression.",
	},
	"E401": {
		Category: CategoryMigration,
		Message:  "Migration targets unknown parameter",
		Detail:   "A migration names a parameter that is not defined in the configuration.",
	},
	"E402": {
		Category: CategoryMigration,
		Message:  "Migration failed",
		Detail:   "One or more migration rules failed while running. Values of the affected parameters were left unchanged.",
	},

	// ============================================
	// Server Errors (E500-E599)
	// ============================================

	"E500": {
		Category: CategoryServer,
		Message:  "Server failed to start",
		Detail:   "The HTTP server could not listen on the configured address.",
	},
	"E501": {
		Category: CategoryServer,
		Message:  "Unknown parameter",
		Detail:   "The requested parameter is not registered.",
	},
	"E502": {
		Category: CategoryServer,
		Message:  "Invalid parameter value",
		Detail:   "The request body is not a valid JSON value for this parameter.",
	},
	"E503": {
		Category: CategoryServer,
		Message:  "Invalid live message",
		Detail:   "A live session frame could not be decoded.",
	},

	// ============================================
	// CLI Errors (E600-E699)
	// ============================================

	"E600": {
		Category: CategoryCLI,
		Message:  "Invalid arguments",
		Detail:   "The command was called with missing or extra arguments.",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}

// Codes returns every registered code in order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// CodesIn returns the registered codes of category in order.
func CodesIn(category Category) []string {
	var codes []string
	for _, code := range Codes() {
		if registry[code].Category == category {
			codes = append(codes, code)
		}
	}
	return codes
}

// categoryPrefix maps the hundreds digit of a code to its category.
var categoryPrefix = map[string]Category{
	"E2": CategoryConfig,
	"E3": CategoryStorage,
	"E4": CategoryMigration,
	"E5": CategoryServer,
	"E6": CategoryCLI,
}

// CategoryOf returns the category a code belongs to by its range, whether
// or not it is registered.
func CategoryOf(code string) Category {
	if len(code) < 2 {
		return ""
	}
	return categoryPrefix[strings.ToUpper(code[:2])]
}
