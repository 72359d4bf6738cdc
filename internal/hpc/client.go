package hpc

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/ocrforge/hpcbroker/internal/db/models"
	"github.com/ocrforge/hpcbroker/internal/logger"
)

// ClientConfig carries the connection parameters for the cluster front-end.
type ClientConfig struct {
	Host           string
	Port           int
	User           string
	PrivateKeyPath string
	// BaseDir is the fixed remote base directory all job staging dirs live
	// under. The batch script is expected at BaseDir/BatchScriptName.
	BaseDir string
}

// Client implements Executor and Transfer over one SSH connection.
type Client struct {
	config ClientConfig
	ssh    *ssh.Client
	sftp   *sftp.Client
}

// Dial connects to the cluster front-end and opens an SFTP subsystem on top
// of the SSH connection.
func Dial(config ClientConfig) (*Client, error) {
	keyBytes, err := os.ReadFile(config.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read ssh key %s: %w", config.PrivateKeyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ssh key: %w", err)
	}

	sshConfig := &ssh.ClientConfig{
		User: config.User,
		Auth: []ssh.AuthMethod{ssh.PublicKeys(signer)},
		// The cluster front-end is reached through a trusted tunnel; host
		// keys rotate with the login nodes behind it.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // #nosec G106
		Timeout:         30 * time.Second,
	}

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	sshClient, err := ssh.Dial("tcp", address, sshConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, fmt.Errorf("failed to open sftp subsystem: %w", err)
	}
	logger.Infof("Connected to cluster front-end: %s", address)
	return &Client{config: config, ssh: sshClient, sftp: sftpClient}, nil
}

// Close releases the SFTP subsystem and the SSH connection.
func (c *Client) Close() error {
	if err := c.sftp.Close(); err != nil {
		_ = c.ssh.Close()
		return err
	}
	return c.ssh.Close()
}

// run executes one command on the cluster front-end and returns its combined
// output. The session is torn down if ctx is cancelled mid-flight.
func (c *Client) run(ctx context.Context, command string) (string, error) {
	session, err := c.ssh.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to open ssh session: %w", err)
	}
	defer func() { _ = session.Close() }()

	var output bytes.Buffer
	session.Stdout = &output
	session.Stderr = &output

	done := make(chan error, 1)
	if err := session.Start(command); err != nil {
		return "", fmt.Errorf("failed to start remote command: %w", err)
	}
	go func() { done <- session.Wait() }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return "", ctx.Err()
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("remote command failed: %w, output: %s", err, output.String())
		}
		return output.String(), nil
	}
}

// SubmitBatchJob implements Executor.SubmitBatchJob.
func (c *Client) SubmitBatchJob(ctx context.Context, params SubmitParams) (string, error) {
	command := buildSubmitCommand(c.config.BaseDir, params)
	logger.WithJob(params.WorkflowJobID).Debugf("Submitting batch job: %s", command)
	output, err := c.run(ctx, command)
	if err != nil {
		return "", err
	}
	return parseSubmitOutput(output)
}

// JobState implements Executor.JobState.
func (c *Client) JobState(ctx context.Context, slurmJobID string) (models.SlurmState, error) {
	output, err := c.run(ctx, buildStateCommand(slurmJobID))
	if err != nil {
		return "", err
	}
	state, err := parseStateOutput(output)
	if err != nil {
		return "", err
	}
	return models.ParseSlurmState(state)
}

// PutWorkspace implements Transfer.PutWorkspace. The workspace is packed
// into one archive locally, uploaded, and unpacked on the remote side, which
// is far cheaper than per-file SFTP round-trips for page-heavy workspaces.
func (c *Client) PutWorkspace(ctx context.Context, localDir string, scriptPath string, jobID string) (string, error) {
	remoteJobDir := RemoteJobDir(c.config.BaseDir, jobID)
	if err := c.sftp.MkdirAll(remoteJobDir); err != nil {
		return "", fmt.Errorf("failed to create remote dir %s: %w", remoteJobDir, err)
	}

	archivePath := filepath.Join(os.TempDir(), jobID+".tar.gz")
	if err := packDir(localDir, archivePath); err != nil {
		return "", fmt.Errorf("failed to pack workspace: %w", err)
	}
	defer func() { _ = os.Remove(archivePath) }()

	remoteArchive := path.Join(remoteJobDir, "workspace.tar.gz")
	if err := c.upload(archivePath, remoteArchive); err != nil {
		return "", err
	}
	if err := c.upload(scriptPath, path.Join(remoteJobDir, path.Base(scriptPath))); err != nil {
		return "", err
	}

	unpack := fmt.Sprintf("cd %s && mkdir -p workspace && tar -xzf workspace.tar.gz -C workspace && rm workspace.tar.gz", remoteJobDir)
	if _, err := c.run(ctx, unpack); err != nil {
		return "", fmt.Errorf("failed to unpack workspace remotely: %w", err)
	}
	return remoteJobDir, nil
}

// GetWorkspace implements Transfer.GetWorkspace.
func (c *Client) GetWorkspace(ctx context.Context, jobID string, workspaceDir string, jobDir string) error {
	remoteJobDir := RemoteJobDir(c.config.BaseDir, jobID)
	pack := fmt.Sprintf("cd %s && tar -czf workspace.tar.gz -C workspace .", remoteJobDir)
	if _, err := c.run(ctx, pack); err != nil {
		return fmt.Errorf("failed to pack workspace remotely: %w", err)
	}

	archivePath := filepath.Join(jobDir, "workspace.tar.gz")
	if err := c.download(path.Join(remoteJobDir, "workspace.tar.gz"), archivePath); err != nil {
		return err
	}
	defer func() { _ = os.Remove(archivePath) }()

	if err := unpackArchive(archivePath, workspaceDir); err != nil {
		return fmt.Errorf("failed to unpack workspace: %w", err)
	}
	return nil
}

// GetJobLog implements Transfer.GetJobLog.
func (c *Client) GetJobLog(_ context.Context, slurmJobID string, jobID string, jobDir string) error {
	logName := fmt.Sprintf("slurm-job-%s.txt", slurmJobID)
	remoteLog := path.Join(RemoteJobDir(c.config.BaseDir, jobID), logName)
	return c.download(remoteLog, filepath.Join(jobDir, logName))
}

func (c *Client) upload(localPath, remotePath string) error {
	local, err := os.Open(localPath) // #nosec G304 -- paths come from store records
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer func() { _ = local.Close() }()

	remote, err := c.sftp.Create(remotePath)
	if err != nil {
		return fmt.Errorf("failed to create remote file %s: %w", remotePath, err)
	}
	defer func() { _ = remote.Close() }()

	if _, err := remote.ReadFrom(local); err != nil {
		return fmt.Errorf("failed to upload %s: %w", remotePath, err)
	}
	return nil
}

func (c *Client) download(remotePath, localPath string) error {
	remote, err := c.sftp.Open(remotePath)
	if err != nil {
		return fmt.Errorf("failed to open remote file %s: %w", remotePath, err)
	}
	defer func() { _ = remote.Close() }()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	local, err := os.Create(localPath) // #nosec G304 -- paths come from store records
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", localPath, err)
	}
	defer func() { _ = local.Close() }()

	if _, err := remote.WriteTo(local); err != nil {
		return fmt.Errorf("failed to download %s: %w", remotePath, err)
	}
	return nil
}
