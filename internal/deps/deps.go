package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// versionTimeout bounds each version probe.
const versionTimeout = 5 * time.Second

// Binary describes an external program the pipeline shells out to.
type Binary struct {
	Name    string
	Command string
	Purpose string
	// VersionArg, when set, is passed to the resolved binary and the first
	// line of its output is reported as the version.
	VersionArg string
	Optional   bool
}

// Availability is the outcome of resolving one Binary.
type Availability struct {
	Binary
	Path      string
	Version   string
	Available bool
	Detail    string
}

// Resolve looks up each binary on PATH and, for the ones found, captures
// their version line. Results keep the input order.
func Resolve(ctx context.Context, binaries []Binary) []Availability {
	out := make([]Availability, 0, len(binaries))
	for _, bin := range binaries {
		bin.Command = strings.TrimSpace(bin.Command)
		avail := Availability{Binary: bin}
		switch {
		case bin.Command == "":
			avail.Detail = "command not configured"
		default:
			path, err := exec.LookPath(bin.Command)
			if err != nil {
				avail.Detail = fmt.Sprintf("%q not found on PATH", bin.Command)
				break
			}
			avail.Path = path
			avail.Available = true
			if bin.VersionArg != "" {
				avail.Version = versionLine(ctx, path, bin.VersionArg)
			}
		}
		out = append(out, avail)
	}
	return out
}

// Missing returns the required binaries that could not be resolved.
func Missing(results []Availability) []Availability {
	var missing []Availability
	for _, r := range results {
		if !r.Available && !r.Optional {
			missing = append(missing, r)
		}
	}
	return missing
}

func versionLine(ctx context.Context, path, arg string) string {
	probeCtx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	output, err := exec.CommandContext(probeCtx, path, arg).CombinedOutput()
	if err != nil && len(output) == 0 {
		return ""
	}
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line
		}
	}
	return ""
}
