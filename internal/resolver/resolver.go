// Package resolver turns the raw command-line token stream into transfer
// job descriptors.
//
// Tokens are read left to right. -E/--Extract may appear anywhere and turns
// on extraction for the whole batch. -L/--Location binds the next token as the
// destination directory of the most recent unbound source. Every other token
// is a source; a source without a following -L gets an empty destination,
// which means the working directory at execution time.
package resolver

import (
	"fmt"

	"github.com/tanq16/downloader/internal/utils"
)

const Usage = "Usage: downloader <source1> [-L <dir1>] [<source2> [-L <dir2>] ...] [-E|--Extract]"

func isExtractFlag(tok string) bool {
	return tok == "-E" || tok == "--Extract"
}

func isLocationFlag(tok string) bool {
	return tok == "-L" || tok == "--Location"
}

// Resolve returns the ordered job descriptors for args along with the
// batch-wide extract flag. All errors wrap utils.ErrUsage.
func Resolve(args []string) ([]utils.JobDescriptor, bool, error) {
	if len(args) == 0 {
		return nil, false, fmt.Errorf("%w: no sources given", utils.ErrUsage)
	}
	var (
		jobs    []utils.JobDescriptor
		pending *utils.JobDescriptor
		extract bool
	)
	for i := 0; i < len(args); i++ {
		tok := args[i]
		switch {
		case isExtractFlag(tok):
			extract = true
		case isLocationFlag(tok):
			if i+1 >= len(args) {
				return nil, false, fmt.Errorf("%w: %s requires a directory", utils.ErrUsage, tok)
			}
			if pending == nil {
				return nil, false, fmt.Errorf("%w: %s must follow a source", utils.ErrUsage, tok)
			}
			dir := args[i+1]
			if isExtractFlag(dir) || isLocationFlag(dir) {
				return nil, false, fmt.Errorf("%w: %s requires a directory, got %s", utils.ErrUsage, tok, dir)
			}
			pending.DestinationDir = dir
			jobs = append(jobs, *pending)
			pending = nil
			i++
		case tok == "":
			return nil, false, fmt.Errorf("%w: empty source at position %d", utils.ErrUsage, i+1)
		default:
			if pending != nil {
				jobs = append(jobs, *pending)
			}
			pending = &utils.JobDescriptor{Source: tok}
		}
	}
	if pending != nil {
		jobs = append(jobs, *pending)
	}
	if len(jobs) == 0 {
		return nil, false, fmt.Errorf("%w: no sources given", utils.ErrUsage)
	}
	for i := range jobs {
		jobs[i].Extract = extract
	}
	return jobs, extract, nil
}
