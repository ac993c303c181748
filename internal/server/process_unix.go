//go:build !windows

package server

import (
	"os/exec"
	"syscall"
)

// JobCmd wraps exec.Cmd so spawned servers die with auditgate instead of
// lingering as orphans.
type JobCmd struct {
	*exec.Cmd
}

func NewJobCmd(name string, arg ...string) *JobCmd {
	return &JobCmd{
		Cmd: exec.Command(name, arg...),
	}
}

func (j *JobCmd) Start() error {
	if j.Cmd.SysProcAttr == nil {
		j.Cmd.SysProcAttr = &syscall.SysProcAttr{}
	}

	// Child receives SIGKILL when the parent dies
	j.Cmd.SysProcAttr.Pdeathsig = syscall.SIGKILL

	// New process group so signals reach npm/npx children too
	j.Cmd.SysProcAttr.Setpgid = true

	return j.Cmd.Start()
}

// Terminate asks the whole process group to exit gracefully.
func (j *JobCmd) Terminate() error {
	if j.Process == nil {
		return nil
	}
	return syscall.Kill(-j.Process.Pid, syscall.SIGTERM)
}

// ForceKill hard-kills the process group.
func (j *JobCmd) ForceKill() error {
	if j.Process == nil {
		return nil
	}
	return syscall.Kill(-j.Process.Pid, syscall.SIGKILL)
}
