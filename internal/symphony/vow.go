package symphony

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/novalym/velm-sub003/internal/heresy"
)

// evaluateVow checks a "?? kind: args" assertion against the Conductor's
// environment or its prior action's recorded output. A failed vow is a
// fatal heresy (the taxonomy carries no dedicated vow-failure Kind, so
// this reuses KindShellStrikeFracture — the same class spec.md assigns to
// a Symphony action failure, since both halt the enclosing rite block).
func (c *Conductor) evaluateVow(ctx context.Context, v VowEdict) *heresy.Heresy {
	switch v.Kind {
	case "succeeds":
		if !c.lastSucceeded {
			return vowFailed(v, "prior action did not succeed (exit %d)", c.lastExit)
		}
		return nil

	case "stdout_contains":
		if len(v.Args) == 0 {
			return heresy.New(heresy.KindParse, "", 0, 0, "?? stdout_contains requires an argument")
		}
		if !strings.Contains(c.lastOutput, v.Args[0]) {
			return vowFailed(v, "stdout does not contain %q", v.Args[0])
		}
		return nil

	case "file_exists":
		if len(v.Args) == 0 {
			return heresy.New(heresy.KindParse, "", 0, 0, "?? file_exists requires a path")
		}
		if c.Sanctum == nil {
			return heresy.New(heresy.KindMeta, v.Args[0], 0, 0, "?? file_exists requires a Sanctum")
		}
		info, err := c.Sanctum.Stat(ctx, v.Args[0])
		if err != nil {
			return heresy.Wrap(err, "?? file_exists: "+v.Args[0])
		}
		if !info.Exists {
			return vowFailed(v, "file %q does not exist", v.Args[0])
		}
		return nil

	case "port_open":
		if len(v.Args) == 0 {
			return heresy.New(heresy.KindParse, "", 0, 0, "?? port_open requires a port")
		}
		if !portOpen(v.Args[0]) {
			return vowFailed(v, "port %s is not open", v.Args[0])
		}
		return nil

	case "exit_code":
		if len(v.Args) == 0 {
			return heresy.New(heresy.KindParse, "", 0, 0, "?? exit_code requires a value")
		}
		want, err := strconv.Atoi(strings.TrimSpace(v.Args[0]))
		if err != nil {
			return heresy.New(heresy.KindParse, "", 0, 0, "?? exit_code: %q is not an integer", v.Args[0])
		}
		if c.lastExit != want {
			return vowFailed(v, "exit code %d, want %d", c.lastExit, want)
		}
		return nil

	default:
		return heresy.New(heresy.KindParse, "", 0, 0, "unknown vow kind %q", v.Kind)
	}
}

func vowFailed(v VowEdict, format string, args ...interface{}) *heresy.Heresy {
	msg := v.Kind + " vow failed: " + fmt.Sprintf(format, args...)
	return heresy.New(heresy.KindShellStrikeFracture, "", 0, 0, "%s", msg)
}

// portOpen reports whether a TCP connection to localhost:port succeeds
// within a short timeout. net.DialTimeout is sufficient here: no example
// repo wraps port-reachability checking in a third-party library, and the
// check itself is a one-shot dial, not a long-lived network client that
// would benefit from one.
func portOpen(port string) bool {
	conn, err := net.DialTimeout("tcp", "localhost:"+strings.TrimSpace(port), 500*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
