//go:build windows

package server

import (
	"os/exec"
)

// JobCmd wraps exec.Cmd. Windows has no process groups in the POSIX sense;
// termination falls back to killing the direct child.
type JobCmd struct {
	*exec.Cmd
}

func NewJobCmd(name string, arg ...string) *JobCmd {
	return &JobCmd{
		Cmd: exec.Command(name, arg...),
	}
}

func (j *JobCmd) Start() error {
	return j.Cmd.Start()
}

func (j *JobCmd) Terminate() error {
	if j.Process == nil {
		return nil
	}
	return j.Process.Kill()
}

func (j *JobCmd) ForceKill() error {
	if j.Process == nil {
		return nil
	}
	return j.Process.Kill()
}
