package sys

import "os"

// EnvVar is one recognized environment variable and its current value.
type EnvVar struct {
	Name  string
	Value string
	Set   bool
}

// RecognizedEnv lists the variables the tool reads, in display order.
func RecognizedEnv(name string) []string {
	p := EnvPrefix(name)
	return []string{
		p + "_HOME",
		p + "_MODE",
		p + "_LOG_LEVEL",
		p + "_CATALOG_ROOTS",
		p + "_CATALOG_MAX_DEPTH",
		p + "_STATE_PATH",
		p + "_AUTOMATION_TIMEOUT",
		"DEVELOPER_DIR",
		"SHELL",
	}
}

// Environment reads every recognized variable.
func Environment(name string) []EnvVar {
	names := RecognizedEnv(name)
	vars := make([]EnvVar, 0, len(names))
	for _, n := range names {
		v, ok := os.LookupEnv(n)
		vars = append(vars, EnvVar{Name: n, Value: v, Set: ok})
	}
	return vars
}
