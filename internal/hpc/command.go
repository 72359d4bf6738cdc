package hpc

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// submittedJobPattern matches the scheduler's submission confirmation line.
var submittedJobPattern = regexp.MustCompile(`Submitted batch job (\d+)`)

// buildSubmitCommand renders the sbatch invocation for one workflow job. The
// batch script receives the staging layout and workflow parameters as
// positional arguments, in the order the script consumes them.
func buildSubmitCommand(baseDir string, params SubmitParams) string {
	remoteJobDir := RemoteJobDir(baseDir, params.WorkflowJobID)
	useMetsServer := "false"
	if params.UseMetsServer {
		useMetsServer = "true"
	}
	removeFileGrps := params.RemoveFileGrps
	if removeFileGrps == "" {
		removeFileGrps = "none"
	}
	steps := "none"
	if len(params.ExecutableSteps) > 0 {
		steps = strings.Join(params.ExecutableSteps, ",")
	}

	args := []string{
		"sbatch",
		fmt.Sprintf("--partition=%s", params.Partition),
		fmt.Sprintf("--time=%s", params.Profile.Deadline),
		fmt.Sprintf("--qos=%s", params.Profile.QOS),
		fmt.Sprintf("--cpus-per-task=%d", params.CPUs),
		fmt.Sprintf("--mem=%dG", params.RAM),
		fmt.Sprintf("--output=%s", path.Join(remoteJobDir, "slurm-job-%j.txt")),
		path.Join(baseDir, BatchScriptName),
		remoteJobDir,
		params.WorkspaceID,
		params.MetsBasename,
		params.InputFileGrp,
		removeFileGrps,
		fmt.Sprintf("%d", params.ProcessForks),
		fmt.Sprintf("%d", params.PagesAmount),
		useMetsServer,
		steps,
		path.Base(params.ScriptPath),
	}
	return strings.Join(args, " ")
}

// parseSubmitOutput extracts the scheduler job id from the sbatch output.
func parseSubmitOutput(output string) (string, error) {
	match := submittedJobPattern.FindStringSubmatch(output)
	if match == nil {
		return "", fmt.Errorf("unexpected sbatch output: %q", strings.TrimSpace(output))
	}
	return match[1], nil
}

// buildStateCommand renders the accounting query for one scheduler job.
func buildStateCommand(slurmJobID string) string {
	return fmt.Sprintf("sacct -j %s --format=State --parsable2 --noheader", slurmJobID)
}

// parseStateOutput normalizes the accounting output to the bare state name.
// sacct reports one line per job step; the first line is the job itself.
// Cancelled jobs are reported as "CANCELLED by <uid>" and interrupted ones
// may carry a trailing "+", both of which are stripped.
func parseStateOutput(output string) (string, error) {
	line := strings.TrimSpace(output)
	if line == "" {
		return "", fmt.Errorf("empty scheduler state output")
	}
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	state := strings.Fields(line)[0]
	state = strings.TrimSuffix(state, "+")
	return state, nil
}
