package errors

// Template defines a registered error type.
type Template struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// Config errors (E100-E199)
	"E100": {
		Category: CategoryConfig,
		Message:  "Cannot read configuration file",
		Detail:   "The configuration file exists but could not be read.",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Invalid configuration syntax",
		Detail:   "The configuration file is not valid JSON or YAML.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration field has a value of the wrong type or out of range.",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Invalid override",
		Detail:   "A --set override must be key.path=value, where value is JSON or a bare string.",
	},
	"E104": {
		Category: CategoryConfig,
		Message:  "Unsupported configuration format",
		Detail:   "Configuration files must end in .json, .yaml or .yml.",
	},

	// CLI errors (E200-E299)
	"E200": {
		Category: CategoryCLI,
		Message:  "Invalid argument",
		Detail:   "A command-line argument could not be parsed.",
	},
	"E201": {
		Category: CategoryCLI,
		Message:  "Unknown demo",
		Detail:   "The demo name does not match any built-in demo. Run 'vtree demo --list' to see them.",
	},

	// Bench errors (E300-E399)
	"E300": {
		Category: CategoryBench,
		Message:  "Benchmark failed",
		Detail:   "A render returned an error during the benchmark run.",
	},
	"E301": {
		Category: CategoryBench,
		Message:  "Report upload failed",
		Detail:   "The benchmark report could not be stored. Check the bucket name and AWS credentials.",
	},

	// Server errors (E400-E499)
	"E400": {
		Category: CategoryServer,
		Message:  "Server failed",
		Detail:   "The mirror server stopped with an error.",
	},
	"E401": {
		Category: CategoryServer,
		Message:  "Initial render failed",
		Detail:   "The served application returned an error from its first render.",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
