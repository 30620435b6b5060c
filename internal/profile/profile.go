// Package profile defines framework profiles: the port range, environment
// variable conventions, and readiness-output patterns associated with one
// family of dev-server run commands.
//
// Readiness detection is string matching on process output. It is a
// heuristic, not proof of health; the supervisor pairs it with a fixed
// bind-detection window so a subject cannot stay in Starting forever.
package profile

import (
	"regexp"
	"strconv"
	"strings"
)

// Name identifies a framework profile.
type Name string

const (
	// Vite covers Vite-based projects (vite, sveltekit, solid-start).
	Vite Name = "vite"

	// Next covers Next.js projects.
	Next Name = "next"

	// Astro covers Astro projects.
	Astro Name = "astro"

	// Node is the generic profile for plain Node/Express style servers
	// and anything unrecognized.
	Node Name = "node"
)

// Profile holds the conventions for one framework family.
//
// Distinct port ranges per profile reduce cross-profile collisions when
// many projects run side by side.
type Profile struct {
	Name Name

	// PortRangeStart/End bound the pool the allocator draws from when a
	// preferred port is unavailable. Inclusive on both ends.
	PortRangeStart int
	PortRangeEnd   int

	// EnvKeys are profile-specific override variables set in addition to
	// the generic PORT variable. Some frameworks ignore PORT under
	// certain conditions and only honor their own key.
	EnvKeys []string

	// readyPatterns are lowercase substrings that signal the dev server
	// is accepting connections.
	readyPatterns []string
}

// GenericPortEnv is the environment variable every profile receives.
const GenericPortEnv = "PORT"

var profiles = map[Name]Profile{
	Vite: {
		Name:           Vite,
		PortRangeStart: 5173,
		PortRangeEnd:   5272,
		EnvKeys:        []string{"VITE_PORT"},
		readyPatterns:  []string{"ready in", "local:", "vite"},
	},
	Next: {
		Name:           Next,
		PortRangeStart: 3000,
		PortRangeEnd:   3099,
		EnvKeys:        nil,
		readyPatterns:  []string{"ready in", "started server", "local:"},
	},
	Astro: {
		Name:           Astro,
		PortRangeStart: 4321,
		PortRangeEnd:   4420,
		EnvKeys:        nil,
		readyPatterns:  []string{"watching for file changes", "local", "astro"},
	},
	Node: {
		Name:           Node,
		PortRangeStart: 8000,
		PortRangeEnd:   8099,
		EnvKeys:        nil,
		readyPatterns:  []string{"listening", "ready", "connected", "started", "server running"},
	},
}

// Lookup returns the profile for the given name, falling back to the
// generic Node profile for empty or unknown names.
func Lookup(name Name) Profile {
	if p, ok := profiles[name]; ok {
		return p
	}
	return profiles[Node]
}

// Names returns the known profile names.
func Names() []Name {
	return []Name{Vite, Next, Astro, Node}
}

// MatchReady reports whether the output line signals readiness for this
// profile.
func (p Profile) MatchReady(line string) bool {
	lower := strings.ToLower(line)
	for _, pat := range p.readyPatterns {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	return false
}

// Port announcement forms seen across dev servers:
//
//	"Local:   http://localhost:5174/"
//	"listening on 127.0.0.1:8080"
//	"started server on 0.0.0.0:3001"
//	"Server listening on port 4000"
var (
	hostPortRe = regexp.MustCompile(`(?i)(?:localhost|127\.0\.0\.1|0\.0\.0\.0):(\d{2,5})`)
	wordPortRe = regexp.MustCompile(`(?i)\bport[ :=]+(\d{2,5})\b`)
)

// MatchPort extracts a bound-port announcement from the output line.
// Returns (0, false) when the line carries none. This is how the system
// notices frameworks that silently fall back to an alternate port when
// the requested one is busy.
func (p Profile) MatchPort(line string) (int, bool) {
	for _, re := range []*regexp.Regexp{hostPortRe, wordPortRe} {
		if m := re.FindStringSubmatch(line); m != nil {
			port, err := strconv.Atoi(m[1])
			if err == nil && port > 0 && port < 65536 {
				return port, true
			}
		}
	}
	return 0, false
}
