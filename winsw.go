package svcmgr

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const (
	// DefaultWinSWPath is the default name of the WinSW executable
	DefaultWinSWPath = "winsw.exe"

	// DefaultWinSWDefinitionDir holds one directory per WinSW service
	DefaultWinSWDefinitionDir = `C:\ProgramData\service-manager`

	// WinSWPathEnv overrides the WinSW executable when it names an existing file
	WinSWPathEnv = "WINSW_PATH"

	// winswMissingDefinition is printed by WinSW when no XML sits next to it
	winswMissingDefinition = "System.IO.FileNotFoundException: Unable to locate WinSW.[xml|yml] file within executable directory"
)

// WinSWFailureAction is the action WinSW takes when the service fails
type WinSWFailureAction int

const (
	// WinSWFailureRestart restarts the service
	WinSWFailureRestart WinSWFailureAction = iota
	// WinSWFailureReboot reboots the machine
	WinSWFailureReboot
	// WinSWFailureNone does nothing
	WinSWFailureNone
)

// String returns the onfailure action name
func (a WinSWFailureAction) String() string {
	switch a {
	case WinSWFailureReboot:
		return "reboot"
	case WinSWFailureNone:
		return "none"
	default:
		return "restart"
	}
}

// WinSWOnFailure configures the <onfailure> element
type WinSWOnFailure struct {
	Action WinSWFailureAction
	// Delay is a WinSW duration such as "10 sec"; empty omits it
	Delay string
}

// WinSWPriority is the process priority class
type WinSWPriority int

const (
	// WinSWPriorityNormal is the default priority class
	WinSWPriorityNormal WinSWPriority = iota
	// WinSWPriorityIdle runs only when the system is idle
	WinSWPriorityIdle
	// WinSWPriorityHigh preempts normal priority processes
	WinSWPriorityHigh
	// WinSWPriorityRealTime is the highest possible priority
	WinSWPriorityRealTime
	// WinSWPriorityBelowNormal sits between idle and normal
	WinSWPriorityBelowNormal
	// WinSWPriorityAboveNormal sits between normal and high
	WinSWPriorityAboveNormal
)

// String returns the WinSW spelling of the priority
func (p WinSWPriority) String() string {
	switch p {
	case WinSWPriorityIdle:
		return "Idle"
	case WinSWPriorityHigh:
		return "High"
	case WinSWPriorityRealTime:
		return "RealTime"
	case WinSWPriorityBelowNormal:
		return "BelowNormal"
	case WinSWPriorityAboveNormal:
		return "AboveNormal"
	default:
		return "Normal"
	}
}

// WinSWStartMode is the service start mode
type WinSWStartMode int

const (
	// WinSWStartAutomatic starts the service at boot
	WinSWStartAutomatic WinSWStartMode = iota
	// WinSWStartBoot is a device driver started by the boot loader
	WinSWStartBoot
	// WinSWStartManual starts the service only on request
	WinSWStartManual
	// WinSWStartSystem is a device driver started during kernel init
	WinSWStartSystem
)

// String returns the WinSW spelling of the start mode
func (s WinSWStartMode) String() string {
	switch s {
	case WinSWStartBoot:
		return "Boot"
	case WinSWStartManual:
		return "Manual"
	case WinSWStartSystem:
		return "System"
	default:
		return "Automatic"
	}
}

// WinSWInstallConfig holds the identity and failure handling options
type WinSWInstallConfig struct {
	// DisplayName defaults to the qualified name
	DisplayName string
	// Description defaults to "Service for <qualified name>"
	Description string
	// FailureAction, when nil, is derived from the restart policy
	FailureAction *WinSWOnFailure
	// ResetFailureTime is a WinSW duration such as "1 hour"
	ResetFailureTime   string
	SecurityDescriptor string
}

// WinSWOptionsConfig holds the optional runtime options
type WinSWOptionsConfig struct {
	Priority       *WinSWPriority
	StopTimeout    string
	StopExecutable string
	StopArgs       []string
	// StartMode, when nil, is derived from Autostart
	StartMode        *WinSWStartMode
	DelayedAutostart *bool
	Dependencies     []string
	Interactive      *bool
	BeepOnShutdown   *bool
}

// WinSWConfig configures the WinSW backend
type WinSWConfig struct {
	Install WinSWInstallConfig
	Options WinSWOptionsConfig
	// DefinitionDir holds a <name> directory per service
	DefinitionDir string
	// WinSWPath is the WinSW executable used when WINSW_PATH is unset
	WinSWPath string
}

// ConfigWinSW returns the default WinSW configuration
func ConfigWinSW() WinSWConfig {
	return WinSWConfig{
		DefinitionDir: DefaultWinSWDefinitionDir,
		WinSWPath:     DefaultWinSWPath,
	}
}

// WinSWServiceManager manages Windows services through the WinSW wrapper.
// Each service gets its own directory holding <name>.xml.
type WinSWServiceManager struct {
	Config WinSWConfig
	Runner Runner
	Logger *slog.Logger
}

// NewWinSWServiceManager creates a WinSW manager
func NewWinSWServiceManager() *WinSWServiceManager {
	return &WinSWServiceManager{Config: ConfigWinSW()}
}

// WithConfig replaces the configuration
func (m *WinSWServiceManager) WithConfig(cfg WinSWConfig) *WinSWServiceManager {
	m.Config = cfg
	return m
}

// WithRunner sets the command runner
func (m *WinSWServiceManager) WithRunner(r Runner) *WinSWServiceManager {
	m.Runner = r
	return m
}

// WithLogger sets the logger
func (m *WinSWServiceManager) WithLogger(l *slog.Logger) *WinSWServiceManager {
	m.Logger = l
	return m
}

func (m *WinSWServiceManager) cmd() commandRunner {
	return commandRunner{runner: m.Runner, logger: m.Logger}
}

// ServiceDir returns the directory holding the definition of a label
func (m *WinSWServiceManager) ServiceDir(label ServiceLabel) string {
	return filepath.Join(valueOr(m.Config.DefinitionDir, DefaultWinSWDefinitionDir), label.QualifiedName())
}

// winswEnvPath returns WINSW_PATH when it names an existing file
func winswEnvPath() (string, bool) {
	p := os.Getenv(WinSWPathEnv)
	if p == "" {
		return "", false
	}
	if _, err := os.Stat(p); err != nil {
		return "", false
	}
	return p, true
}

func (m *WinSWServiceManager) winswPath() string {
	if p, ok := winswEnvPath(); ok {
		return p
	}
	return valueOr(m.Config.WinSWPath, DefaultWinSWPath)
}

// Available reports whether WinSW is on the PATH or WINSW_PATH exists
func (m *WinSWServiceManager) Available() (bool, error) {
	ok, err := lookPath(valueOr(m.Config.WinSWPath, DefaultWinSWPath))
	if err != nil {
		return false, wrapOp(KindWinSW, OpAvailable, ServiceLabel{}, err)
	}
	if ok {
		return true, nil
	}
	_, ok = winswEnvPath()
	return ok, nil
}

// Level always returns LevelSystem
func (m *WinSWServiceManager) Level() ServiceLevel {
	return LevelSystem
}

// SetLevel accepts only LevelSystem
func (m *WinSWServiceManager) SetLevel(level ServiceLevel) error {
	if level != LevelSystem {
		return unsupportedLevel(KindWinSW, level)
	}
	return nil
}

// winsw runs `winsw <command> <name>.xml` inside the service directory
func (m *WinSWServiceManager) winsw(ctx context.Context, label ServiceLabel, command string) (Command, *Output, error) {
	return m.cmd().run(ctx, m.ServiceDir(label), m.winswPath(), command, label.QualifiedName()+".xml")
}

func (m *WinSWServiceManager) winswCheck(ctx context.Context, label ServiceLabel, command string) error {
	cmd, out, err := m.winsw(ctx, label, command)
	if err != nil {
		return err
	}
	if !out.Success() {
		return newCommandError(cmd, out)
	}
	return nil
}

// Install writes <dir>/<name>/<name>.xml and runs `winsw install`. A
// contents override must be well-formed XML and is rejected before
// anything is written.
func (m *WinSWServiceManager) Install(ctx context.Context, c InstallCtx) error {
	return wrapOp(KindWinSW, OpInstall, c.Label, m.install(ctx, c))
}

func (m *WinSWServiceManager) install(ctx context.Context, c InstallCtx) error {
	data, err := m.BuildXML(c)
	if err != nil {
		return err
	}

	dir := m.ServiceDir(c.Label)
	if err := os.MkdirAll(dir, DirMode); err != nil {
		return err
	}
	path := filepath.Join(dir, c.Label.QualifiedName()+".xml")
	if err := writeFile(path, data, FileMode); err != nil {
		return err
	}
	return m.winswCheck(ctx, c.Label, "install")
}

// BuildXML returns the service definition for c: the validated contents
// override, or a generated document
func (m *WinSWServiceManager) BuildXML(c InstallCtx) ([]byte, error) {
	if c.Contents != "" {
		if err := validateXML(c.Contents); err != nil {
			return nil, err
		}
		return []byte(c.Contents), nil
	}
	return m.buildDocument(c).WriteToBytes()
}

func (m *WinSWServiceManager) buildDocument(c InstallCtx) *etree.Document {
	install := m.Config.Install
	opts := m.Config.Options
	name := c.Label.QualifiedName()

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	service := doc.CreateElement("service")
	text := func(tag, value string) {
		service.CreateElement(tag).SetText(value)
	}

	text("id", name)
	text("executable", c.Program)
	text("name", valueOr(install.DisplayName, name))
	text("description", valueOr(install.Description, "Service for "+name))
	text("arguments", strings.Join(c.Args, " "))
	if c.WorkingDirectory != "" {
		text("workingdirectory", c.WorkingDirectory)
	}
	for _, e := range c.Environment {
		env := service.CreateElement("env")
		env.CreateAttr("name", e.Name)
		env.CreateAttr("value", e.Value)
	}
	if c.Username != "" {
		m.cmd().log().Warn("winsw service accounts need a password, ignoring username",
			"label", name, "username", c.Username)
	}

	failure := m.failureAction(c)
	onFailure := service.CreateElement("onfailure")
	onFailure.CreateAttr("action", failure.Action.String())
	if failure.Delay != "" {
		onFailure.CreateAttr("delay", failure.Delay)
	}
	if install.ResetFailureTime != "" {
		text("resetfailure", install.ResetFailureTime)
	}
	if install.SecurityDescriptor != "" {
		text("securityDescriptor", install.SecurityDescriptor)
	}

	if opts.Priority != nil {
		text("priority", opts.Priority.String())
	}
	if opts.StopTimeout != "" {
		text("stoptimeout", opts.StopTimeout)
	}
	if opts.StopExecutable != "" {
		text("stopexecutable", opts.StopExecutable)
	}
	if len(opts.StopArgs) > 0 {
		text("stoparguments", strings.Join(opts.StopArgs, " "))
	}

	startMode := WinSWStartManual
	if c.Autostart {
		startMode = WinSWStartAutomatic
	}
	if opts.StartMode != nil {
		startMode = *opts.StartMode
	}
	text("startmode", startMode.String())

	if opts.DelayedAutostart != nil {
		text("delayedAutoStart", strconv.FormatBool(*opts.DelayedAutostart))
	}
	for _, dep := range opts.Dependencies {
		text("depend", dep)
	}
	if opts.Interactive != nil {
		text("interactive", strconv.FormatBool(*opts.Interactive))
	}
	if opts.BeepOnShutdown != nil {
		text("beeponshutdown", strconv.FormatBool(*opts.BeepOnShutdown))
	}

	doc.Indent(2)
	return doc
}

// failureAction returns the configured failure action, or one derived
// from the restart policy
func (m *WinSWServiceManager) failureAction(c InstallCtx) WinSWOnFailure {
	if m.Config.Install.FailureAction != nil {
		return *m.Config.Install.FailureAction
	}

	switch c.RestartPolicy.Kind {
	case RestartAlways, RestartOnFailure:
		a := WinSWOnFailure{Action: WinSWFailureRestart}
		if secs, ok := c.RestartPolicy.DelaySeconds(); ok {
			a.Delay = fmt.Sprintf("%d sec", secs)
		}
		return a
	case RestartOnSuccess:
		m.cmd().log().Warn("winsw cannot restart on success, ignoring",
			"label", c.Label.QualifiedName())
	}
	return WinSWOnFailure{Action: WinSWFailureNone}
}

// validateXML checks that s is a well-formed document with a root element
func validateXML(s string) error {
	dec := xml.NewDecoder(strings.NewReader(s))
	depth, roots := 0, 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: contents are not valid XML: %v", ErrInvalidConfiguration, err)
		}
		switch tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				roots++
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	if roots != 1 || depth != 0 {
		return fmt.Errorf("%w: contents must hold exactly one root element", ErrInvalidConfiguration)
	}
	return nil
}

// Uninstall runs `winsw uninstall` and removes the service directory
func (m *WinSWServiceManager) Uninstall(ctx context.Context, c UninstallCtx) error {
	return wrapOp(KindWinSW, OpUninstall, c.Label, m.uninstall(ctx, c))
}

func (m *WinSWServiceManager) uninstall(ctx context.Context, c UninstallCtx) error {
	if err := m.winswCheck(ctx, c.Label, "uninstall"); err != nil {
		return err
	}
	return os.RemoveAll(m.ServiceDir(c.Label))
}

// Start runs `winsw start`
func (m *WinSWServiceManager) Start(ctx context.Context, c StartCtx) error {
	return wrapOp(KindWinSW, OpStart, c.Label, m.winswCheck(ctx, c.Label, "start"))
}

// Stop runs `winsw stop`
func (m *WinSWServiceManager) Stop(ctx context.Context, c StopCtx) error {
	return wrapOp(KindWinSW, OpStop, c.Label, m.winswCheck(ctx, c.Label, "stop"))
}

// Status runs `winsw status`. A missing service directory is NotInstalled
// without running anything.
func (m *WinSWServiceManager) Status(ctx context.Context, c StatusCtx) (Status, error) {
	st, err := m.status(ctx, c)
	return st, wrapOp(KindWinSW, OpStatus, c.Label, err)
}

func (m *WinSWServiceManager) status(ctx context.Context, c StatusCtx) (Status, error) {
	if _, err := os.Stat(m.ServiceDir(c.Label)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Status{State: StateNotInstalled}, nil
		}
		return Status{}, err
	}

	cmd, out, err := m.winsw(ctx, c.Label, "status")
	if err != nil {
		return Status{}, err
	}
	if !out.Success() {
		if strings.Contains(string(out.Stderr), winswMissingDefinition) {
			return Status{State: StateNotInstalled}, nil
		}
		return Status{}, newCommandError(cmd, out)
	}

	stdout := string(out.Stdout)
	switch {
	case strings.Contains(stdout, "NonExistent"):
		return Status{State: StateNotInstalled}, nil
	case strings.Contains(stdout, "running"):
		return Status{State: StateRunning}, nil
	default:
		return Status{State: StateStopped}, nil
	}
}
