package harness

import "os"

// BuildEnv constructs a child process environment from an EnvPolicy: start
// from inherit, layer the allowlist from the host environment, then apply
// set — set wins (spec §4.3). Modeled on the teacher's envMap-then-envSlice
// construction in internal/egg.Server.Start.
func BuildEnv(inherit bool, allowlist []string, set map[string]string) []string {
	envMap := make(map[string]string, len(allowlist)+len(set))

	if inherit {
		for _, kv := range os.Environ() {
			for i := 0; i < len(kv); i++ {
				if kv[i] == '=' {
					envMap[kv[:i]] = kv[i+1:]
					break
				}
			}
		}
	}
	for _, k := range allowlist {
		if v, ok := os.LookupEnv(k); ok {
			envMap[k] = v
		}
	}
	for k, v := range set {
		envMap[k] = v
	}

	envSlice := make([]string, 0, len(envMap))
	for k, v := range envMap {
		envSlice = append(envSlice, k+"="+v)
	}
	return envSlice
}
