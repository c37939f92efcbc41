package sink

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultPerm is the mode of newly created log files.
const DefaultPerm os.FileMode = 0o640

type openOptions struct {
	truncate bool
	sync     bool
	perm     os.FileMode
	params   map[string]string
}

func parseOptions(options string) (openOptions, error) {
	opts := openOptions{perm: DefaultPerm, params: map[string]string{}}

	for raw := range strings.SplitSeq(options, ",") {
		token := strings.ToLower(strings.TrimSpace(raw))
		switch token {
		case "", "a", "ab", "append":
			opts.truncate = false
		case "w", "wb", "truncate":
			opts.truncate = true
		case "sync":
			opts.sync = true
		default:
			if key, value, ok := strings.Cut(token, "="); ok {
				opts.params[strings.TrimSpace(key)] = strings.TrimSpace(value)
				continue
			}
			perm, err := strconv.ParseUint(token, 8, 32)
			if err != nil || perm > 0o777 {
				return opts, fmt.Errorf("unknown option %q", raw)
			}
			opts.perm = os.FileMode(perm)
		}
	}
	return opts, nil
}

// flags returns the open(2) flags for the first open.
// Reopens always append so a file that was not rotated keeps its content.
func (o openOptions) flags(first bool) int {
	flag := os.O_WRONLY | os.O_CREATE
	if first && o.truncate {
		flag |= os.O_TRUNC
	} else {
		flag |= os.O_APPEND
	}
	if o.sync {
		flag |= os.O_SYNC
	}
	return flag
}
