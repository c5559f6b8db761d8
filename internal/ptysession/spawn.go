package ptysession

import (
	"os"
	"strings"
)

const disallowedMetachars = ";&|`$(){}\n"

// envDenyList holds the variables a caller-supplied override may never set.
var envDenyList = map[string]struct{}{
	"PATH":                  {},
	"HOME":                  {},
	"USER":                  {},
	"SHELL":                 {},
	"LD_PRELOAD":            {},
	"LD_LIBRARY_PATH":       {},
	"DYLD_INSERT_LIBRARIES": {},
	"NODE_OPTIONS":          {},
	"ELECTRON_RUN_AS_NODE":  {},
}

// nestedAgentVars are unconditionally stripped so a spawned shell does not
// believe it is itself running inside an agent session.
var nestedAgentVars = []string{
	"CLAUDECODE",
	"CLAUDE_CODE_SESSION",
	"CLAUDE_CODE_ENTRYPOINT",
}

// validateCommand rejects commands or arguments carrying shell
// metacharacters, per spec §4.2.
func validateCommand(command string, args []string) error {
	if strings.ContainsAny(command, disallowedMetachars) {
		return ErrInvalidCommand
	}
	for _, a := range args {
		if strings.ContainsAny(a, disallowedMetachars) {
			return ErrInvalidCommand
		}
	}
	return nil
}

// resolveCommand applies the empty-command default: the user's shell, or
// /bin/sh if $SHELL is unset.
func resolveCommand(command string) string {
	if command != "" {
		return command
	}
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	return "/bin/sh"
}

// resolveCwd applies the empty-cwd default: $HOME, or / if unset.
func resolveCwd(cwd string) string {
	if cwd != "" {
		return cwd
	}
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	return "/"
}

// buildEnv constructs the child environment: the process environment, the
// fixed terminal overrides, the caller's overrides filtered through the
// deny list, and the unconditional removal of nested-agent markers.
func buildEnv(overrides map[string]string) []string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			env[k] = v
		}
	}

	env["TERM"] = "xterm-256color"
	env["COLORTERM"] = "truecolor"

	for k, v := range overrides {
		if _, denied := envDenyList[k]; denied {
			continue
		}
		env[k] = v
	}

	for _, k := range nestedAgentVars {
		delete(env, k)
	}

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
