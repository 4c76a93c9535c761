package services

import "errors"

// Panel errors
var (
	ErrPanelNotFound      = errors.New("panel: not found")
	ErrPanelAlreadyExists = errors.New("panel: URL already registered")
	ErrPanelInvalidInput  = errors.New("panel: invalid input")
	ErrPanelAuthFailed    = errors.New("panel: authentication failed")
	ErrPanelNoCredential  = errors.New("panel: no stored credential")
)

// SSH profile errors
var (
	ErrProfileNotFound      = errors.New("ssh_profile: not found")
	ErrProfileAlreadyExists = errors.New("ssh_profile: name already exists")
	ErrProfileInvalidInput  = errors.New("ssh_profile: invalid input")
	ErrProfileInUse         = errors.New("ssh_profile: referenced by existing nodes")
)

// Node errors
var (
	ErrNodeNotFound      = errors.New("node: not found")
	ErrNodeAlreadyExists = errors.New("node: name already exists on this panel")
	ErrNodeInvalidInput  = errors.New("node: invalid input")
	ErrNodeNoSSHProfile  = errors.New("node: no ssh profile attached")
	ErrNodeBadAction     = errors.New("node: unsupported action")
)

// Job errors
var (
	ErrJobNotFound = errors.New("job: not found")
	ErrJobTerminal = errors.New("job: already finished")
)

// Template errors
var (
	ErrTemplateNotFound      = errors.New("template: not found")
	ErrTemplateAlreadyExists = errors.New("template: tag already exists")
	ErrTemplateInvalidInput  = errors.New("template: invalid input")
)

// Install errors
var (
	ErrInstallInvalidInput  = errors.New("install: invalid input")
	ErrInstallNoCredentials = errors.New("install: exactly one credential source required")
)
