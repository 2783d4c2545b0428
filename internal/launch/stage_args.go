package launch

import "fmt"

// StageArgs encodes a request for the re-executed launcher:
//
//	--detach-stage <umask> <dir> <program> [args...]
func StageArgs(m Umask, req Request) []string {
	args := []string{StageFlag, m.String(), req.Dir, req.Program}
	return append(args, req.Args...)
}

// ParseStageArgs is the inverse of StageArgs, minus the leading flag. The
// environment is not part of the encoding, the stage process already runs
// with it.
func ParseStageArgs(args []string) (Umask, Request, error) {
	if len(args) < 3 {
		return 0, Request{}, fmt.Errorf("stage called with args: %q", args)
	}
	m, err := ParseUmask(args[0])
	if err != nil {
		return 0, Request{}, err
	}
	req := Request{Dir: args[1], Program: args[2], Args: args[3:]}
	if req.Program == "" {
		return 0, Request{}, ErrNoProgram
	}
	return m, req, nil
}
