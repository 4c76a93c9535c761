package remote

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	cliBinary        = "marzban-node-manager"
	cliBootstrapURL  = "https://raw.githubusercontent.com/DrSaeedHub/Marzban-node-manager/main/install-cli.sh"
	installTimeout   = 5 * time.Minute
	bootstrapTimeout = 2 * time.Minute
)

// Runner is the slice of the SSH client the CLI controller needs. Tests
// substitute a scripted fake.
type Runner interface {
	Execute(ctx context.Context, command string, timeout time.Duration) (CommandResult, error)
	UploadContent(ctx context.Context, content, remotePath string, mode os.FileMode) error
}

// InstallResult reports one node install attempt. ServicePort and APIPort
// are the ports the CLI actually bound; with auto-ports these differ from
// whatever the caller asked for.
type InstallResult struct {
	Success     bool
	NodeName    string
	ServicePort int
	APIPort     int
	InstallDir  string
	DataDir     string
	PublicIP    string
	Error       string
}

// NodeState is the parsed status of one managed node.
type NodeState struct {
	Name        string
	Found       bool
	Running     bool
	Method      string
	ServicePort int
	APIPort     int
	ContainerID string
}

type InstallParams struct {
	Name        string
	Certificate string
	ServicePort int
	APIPort     int
	Method      string
	Inbounds    []string
	AutoPorts   bool
}

// NodeManager drives the marzban-node-manager CLI over an established
// remote session.
type NodeManager struct {
	run Runner
}

func NewNodeManager(run Runner) *NodeManager {
	return &NodeManager{run: run}
}

var (
	servicePortRe = regexp.MustCompile(`SERVICE_PORT:\s+(\d+)`)
	apiPortRe     = regexp.MustCompile(`XRAY_API_PORT:\s+(\d+)`)
	installDirRe  = regexp.MustCompile(`Install Dir:\s+(\S+)`)
	dataDirRe     = regexp.MustCompile(`Data Dir:\s+(\S+)`)
	publicIPRe    = regexp.MustCompile(`Use this IP[^:]*:\s*(\d+\.\d+\.\d+\.\d+)`)
	versionRe     = regexp.MustCompile(`v?(\d+\.\d+\.\d+)`)
)

// shellQuote wraps s in single quotes, escaping embedded single quotes, so
// node names and inbound tags can never be interpreted by the remote shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func (m *NodeManager) IsInstalled(ctx context.Context) (bool, error) {
	result, err := m.run.Execute(ctx, "command -v "+cliBinary, 10*time.Second)
	if err != nil {
		return false, err
	}
	return result.Success(), nil
}

// InstallCLI fetches and runs the bootstrap script, then re-probes to
// confirm the binary landed on PATH.
func (m *NodeManager) InstallCLI(ctx context.Context) error {
	result, err := m.run.Execute(ctx, fmt.Sprintf("curl -sSL %s | bash", cliBootstrapURL), bootstrapTimeout)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("cli bootstrap script failed: %s", strings.TrimSpace(StripANSI(result.Stderr)))
	}

	installed, err := m.IsInstalled(ctx)
	if err != nil {
		return err
	}
	if !installed {
		return fmt.Errorf("cli bootstrap finished but %s is not on PATH", cliBinary)
	}
	return nil
}

// Version returns the CLI version, extracting a semver-shaped substring and
// falling back to the raw trimmed output when none matches.
func (m *NodeManager) Version(ctx context.Context) (string, error) {
	result, err := m.run.Execute(ctx, cliBinary+" --version", 10*time.Second)
	if err != nil {
		return "", err
	}
	if !result.Success() {
		return "", fmt.Errorf("version command exited with code %d", result.ExitCode)
	}
	out := StripANSI(result.Stdout)
	if match := versionRe.FindStringSubmatch(out); match != nil {
		return match[1], nil
	}
	return strings.TrimSpace(out), nil
}

// InstallNode uploads the certificate to a private temp file, runs the CLI
// install and parses its output. The temp certificate is removed no matter
// how the install went.
func (m *NodeManager) InstallNode(ctx context.Context, params InstallParams) (InstallResult, error) {
	certPath := fmt.Sprintf("/tmp/ssl_cert_%s.pem", sanitizeName(params.Name))
	if err := m.run.UploadContent(ctx, params.Certificate, certPath, 0o600); err != nil {
		return InstallResult{NodeName: params.Name, ServicePort: params.ServicePort, APIPort: params.APIPort},
			fmt.Errorf("failed to upload certificate: %w", err)
	}

	method := params.Method
	if method == "" {
		method = "docker"
	}

	cmd := fmt.Sprintf("%s install -n %s -c %s -m %s -y",
		cliBinary, shellQuote(params.Name), shellQuote(certPath), shellQuote(method))
	if !params.AutoPorts {
		cmd += fmt.Sprintf(" -s %d -x %d", params.ServicePort, params.APIPort)
	}
	if len(params.Inbounds) > 0 {
		cmd += " -i " + shellQuote(strings.Join(params.Inbounds, ","))
	}

	result, execErr := m.run.Execute(ctx, cmd, installTimeout)

	// Remove the certificate regardless of the install outcome.
	cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	m.run.Execute(cleanupCtx, "rm -f "+shellQuote(certPath), 10*time.Second)
	cancel()

	if execErr != nil {
		return InstallResult{NodeName: params.Name, ServicePort: params.ServicePort, APIPort: params.APIPort},
			execErr
	}

	return parseInstallOutput(result, params.Name, params.ServicePort, params.APIPort), nil
}

// parseInstallOutput strips control sequences and extracts the ports the CLI
// actually assigned, plus install/data dirs and the public IP when present.
// Port parsing runs before the exit-code check so partial port information
// survives a failed install.
func parseInstallOutput(result CommandResult, name string, servicePort, apiPort int) InstallResult {
	clean := StripANSI(result.Stdout + result.Stderr)

	if match := servicePortRe.FindStringSubmatch(clean); match != nil {
		if port, err := strconv.Atoi(match[1]); err == nil {
			servicePort = port
		}
	}
	if match := apiPortRe.FindStringSubmatch(clean); match != nil {
		if port, err := strconv.Atoi(match[1]); err == nil {
			apiPort = port
		}
	}

	if !result.Success() {
		errMsg := strings.TrimSpace(clean)
		if errMsg == "" {
			errMsg = "installation failed"
		}
		return InstallResult{
			NodeName:    name,
			ServicePort: servicePort,
			APIPort:     apiPort,
			Error:       errMsg,
		}
	}

	res := InstallResult{
		Success:     true,
		NodeName:    name,
		ServicePort: servicePort,
		APIPort:     apiPort,
	}
	if match := installDirRe.FindStringSubmatch(clean); match != nil {
		res.InstallDir = match[1]
	}
	if match := dataDirRe.FindStringSubmatch(clean); match != nil {
		res.DataDir = match[1]
	}
	if match := publicIPRe.FindStringSubmatch(clean); match != nil {
		res.PublicIP = match[1]
	}
	return res
}

// Status reports the state of one node. A non-zero exit means the node is
// not managed on this host, which is a result, not an error.
func (m *NodeManager) Status(ctx context.Context, name string) (NodeState, error) {
	result, err := m.run.Execute(ctx, fmt.Sprintf("%s status -n %s", cliBinary, shellQuote(name)), 30*time.Second)
	if err != nil {
		return NodeState{Name: name}, err
	}
	if !result.Success() {
		return NodeState{Name: name, Found: false}, nil
	}
	return parseStatusOutput(StripANSI(result.Stdout), name), nil
}

var (
	statusPortsRe     = regexp.MustCompile(`(\d+)/(\d+)`)
	statusContainerRe = regexp.MustCompile(`\b[a-f0-9]{12}\b`)
)

func parseStatusOutput(output, name string) NodeState {
	lower := strings.ToLower(output)
	state := NodeState{
		Name:    name,
		Found:   true,
		Running: strings.Contains(output, "● Up") || strings.Contains(lower, "running"),
		Method:  "docker",
	}
	if strings.Contains(lower, "normal") || strings.Contains(lower, "systemd") {
		state.Method = "normal"
	}
	if match := statusPortsRe.FindStringSubmatch(output); match != nil {
		state.ServicePort, _ = strconv.Atoi(match[1])
		state.APIPort, _ = strconv.Atoi(match[2])
	}
	if match := statusContainerRe.FindString(output); match != "" {
		state.ContainerID = match
	}
	return state
}

// ListNodes returns the names of nodes managed on this host, one per output
// line.
func (m *NodeManager) ListNodes(ctx context.Context) ([]string, error) {
	result, err := m.run.Execute(ctx, cliBinary+" list", 30*time.Second)
	if err != nil {
		return nil, err
	}
	if !result.Success() {
		return nil, nil
	}

	var names []string
	for _, line := range strings.Split(StripANSI(result.Stdout), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}

func (m *NodeManager) Start(ctx context.Context, name string) (bool, error) {
	return m.lifecycle(ctx, "start", name)
}

func (m *NodeManager) Stop(ctx context.Context, name string) (bool, error) {
	return m.lifecycle(ctx, "stop", name)
}

func (m *NodeManager) Restart(ctx context.Context, name string) (bool, error) {
	return m.lifecycle(ctx, "restart", name)
}

func (m *NodeManager) lifecycle(ctx context.Context, action, name string) (bool, error) {
	result, err := m.run.Execute(ctx, fmt.Sprintf("%s %s -n %s", cliBinary, action, shellQuote(name)), 60*time.Second)
	if err != nil {
		return false, err
	}
	return result.Success(), nil
}

func (m *NodeManager) Uninstall(ctx context.Context, name string) (bool, error) {
	result, err := m.run.Execute(ctx, fmt.Sprintf("%s uninstall -n %s -y", cliBinary, shellQuote(name)), 2*time.Minute)
	if err != nil {
		return false, err
	}
	return result.Success(), nil
}

// Logs fetches the last lines of a node's log output.
func (m *NodeManager) Logs(ctx context.Context, name string, lines int) (string, error) {
	if lines <= 0 {
		lines = 100
	}
	cmd := fmt.Sprintf("%s logs -n %s 2>&1 | tail -n %d", cliBinary, shellQuote(name), lines)
	result, err := m.run.Execute(ctx, cmd, 30*time.Second)
	if err != nil {
		return "", err
	}
	return result.Stdout, nil
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// sanitizeName keeps temp file paths shell-safe even for hostile node names.
func sanitizeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}
