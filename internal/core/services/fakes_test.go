package services

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/marzdeck/backend/internal/domain"
	"github.com/marzdeck/backend/internal/infrastructure/panel"
	"github.com/marzdeck/backend/internal/infrastructure/remote"
	"gorm.io/gorm"
)

// ==================== in-memory repositories ====================

type fakePanelRepo struct {
	mu     sync.Mutex
	nextID uint
	panels map[uint]*domain.Panel
}

func newFakePanelRepo() *fakePanelRepo {
	return &fakePanelRepo{nextID: 1, panels: make(map[uint]*domain.Panel)}
}

func (r *fakePanelRepo) Create(ctx context.Context, p *domain.Panel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.nextID
	r.nextID++
	cp := *p
	r.panels[p.ID] = &cp
	return nil
}

func (r *fakePanelRepo) GetByID(ctx context.Context, id uint) (*domain.Panel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.panels[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePanelRepo) GetByURL(ctx context.Context, url string) (*domain.Panel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.panels {
		if p.URL == url {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePanelRepo) GetAll(ctx context.Context) ([]domain.Panel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Panel, 0, len(r.panels))
	for _, p := range r.panels {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakePanelRepo) Update(ctx context.Context, p *domain.Panel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.panels[p.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *p
	r.panels[p.ID] = &cp
	return nil
}

func (r *fakePanelRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.panels, id)
	return nil
}

type fakeCredRepo struct {
	mu    sync.Mutex
	creds map[uint]*domain.PanelCredential
}

func newFakeCredRepo() *fakeCredRepo {
	return &fakeCredRepo{creds: make(map[uint]*domain.PanelCredential)}
}

func (r *fakeCredRepo) Upsert(ctx context.Context, cred *domain.PanelCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *cred
	r.creds[cred.PanelID] = &cp
	return nil
}

func (r *fakeCredRepo) GetByPanelID(ctx context.Context, panelID uint) (*domain.PanelCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cred, ok := r.creds[panelID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *cred
	return &cp, nil
}

func (r *fakeCredRepo) DeleteByPanelID(ctx context.Context, panelID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.creds, panelID)
	return nil
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	nextID   uint
	profiles map[uint]*domain.SSHProfile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{nextID: 1, profiles: make(map[uint]*domain.SSHProfile)}
}

func (r *fakeProfileRepo) Create(ctx context.Context, p *domain.SSHProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.nextID
	r.nextID++
	cp := *p
	r.profiles[p.ID] = &cp
	return nil
}

func (r *fakeProfileRepo) GetByID(ctx context.Context, id uint) (*domain.SSHProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProfileRepo) GetByName(ctx context.Context, name string) (*domain.SSHProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.Name == name {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProfileRepo) GetAll(ctx context.Context) ([]domain.SSHProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.SSHProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakeProfileRepo) Update(ctx context.Context, p *domain.SSHProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[p.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *p
	r.profiles[p.ID] = &cp
	return nil
}

func (r *fakeProfileRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.profiles, id)
	return nil
}

type fakeNodeRepo struct {
	mu     sync.Mutex
	nextID uint
	nodes  map[uint]*domain.Node
}

func newFakeNodeRepo() *fakeNodeRepo {
	return &fakeNodeRepo{nextID: 1, nodes: make(map[uint]*domain.Node)}
}

func (r *fakeNodeRepo) Create(ctx context.Context, n *domain.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = r.nextID
	r.nextID++
	cp := *n
	r.nodes[n.ID] = &cp
	return nil
}

func (r *fakeNodeRepo) GetByID(ctx context.Context, id uint) (*domain.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *n
	return &cp, nil
}

func (r *fakeNodeRepo) GetByName(ctx context.Context, panelID uint, name string) (*domain.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.nodes {
		if n.PanelID == panelID && strings.EqualFold(n.Name, name) {
			cp := *n
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeNodeRepo) GetByPanelID(ctx context.Context, panelID uint) ([]domain.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Node
	for _, n := range r.nodes {
		if n.PanelID == panelID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (r *fakeNodeRepo) GetAll(ctx context.Context) ([]domain.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, *n)
	}
	return out, nil
}

func (r *fakeNodeRepo) Update(ctx context.Context, n *domain.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[n.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *n
	r.nodes[n.ID] = &cp
	return nil
}

func (r *fakeNodeRepo) UpdateStatus(ctx context.Context, id uint, status domain.NodeStatus, note string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	n.Status = status
	n.StatusNote = note
	return nil
}

func (r *fakeNodeRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.nodes, id)
	return nil
}

type fakeTemplateRepo struct {
	mu        sync.Mutex
	nextID    uint
	templates map[uint]*domain.ConfigTemplate
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{nextID: 1, templates: make(map[uint]*domain.ConfigTemplate)}
}

func (r *fakeTemplateRepo) Create(ctx context.Context, t *domain.ConfigTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = r.nextID
	r.nextID++
	cp := *t
	r.templates[t.ID] = &cp
	return nil
}

func (r *fakeTemplateRepo) GetByID(ctx context.Context, id uint) (*domain.ConfigTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTemplateRepo) GetByTag(ctx context.Context, tag string) (*domain.ConfigTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.templates {
		if t.Tag == tag {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeTemplateRepo) GetAll(ctx context.Context, protocol, transport string) ([]domain.ConfigTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ConfigTemplate
	for _, t := range r.templates {
		if protocol != "" && t.Protocol != protocol {
			continue
		}
		if transport != "" && t.Transport != transport {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTemplateRepo) Update(ctx context.Context, t *domain.ConfigTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[t.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *t
	r.templates[t.ID] = &cp
	return nil
}

func (r *fakeTemplateRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.templates, id)
	return nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditLog
}

func (r *fakeAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) GetByEntity(ctx context.Context, entityType string, entityID uint) ([]domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AuditLog
	for _, e := range r.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) GetAll(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AuditLog, len(r.entries))
	copy(out, r.entries)
	return out, nil
}

func (r *fakeAuditRepo) CleanupOld(ctx context.Context, olderThanDays int) error { return nil }

func (r *fakeAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

// ==================== fake remote session ====================

// fakeSession scripts command results by handler and records every
// interaction.
type fakeSession struct {
	mu         sync.Mutex
	handler    func(command string) remote.CommandResult
	connectErr error
	commands   []string
	uploads    map[string]string
	closed     bool
}

func newFakeSession(handler func(command string) remote.CommandResult) *fakeSession {
	return &fakeSession{handler: handler, uploads: make(map[string]string)}
}

func (s *fakeSession) Connect(ctx context.Context) error { return s.connectErr }

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSession) Execute(ctx context.Context, command string, timeout time.Duration) (remote.CommandResult, error) {
	s.mu.Lock()
	s.commands = append(s.commands, command)
	s.mu.Unlock()
	if s.handler == nil {
		return remote.CommandResult{}, nil
	}
	return s.handler(command), nil
}

func (s *fakeSession) UploadContent(ctx context.Context, content, remotePath string, mode os.FileMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads[remotePath] = content
	return nil
}

func (s *fakeSession) TestConnection(ctx context.Context) (bool, string) {
	if s.connectErr != nil {
		return false, s.connectErr.Error()
	}
	return true, "connection successful"
}

func (s *fakeSession) sawCommand(prefix string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.commands {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

// ==================== fake panel client ====================

type fakePanelClient struct {
	mu sync.Mutex

	nodes        []panel.Node
	getNodesErr  error
	createErr    error
	settingsErr  error
	certificate  string
	created      []panel.NodeCreate
	deletedIDs   []int
	authErr      error
	admin        panel.AdminInfo
	adminErr     error
	systemStats  panel.SystemStats
	reconnectIDs []int
}

func (c *fakePanelClient) Authenticate(ctx context.Context) (*panel.TokenInfo, error) {
	if c.authErr != nil {
		return nil, c.authErr
	}
	return &panel.TokenInfo{AccessToken: "test-token"}, nil
}

func (c *fakePanelClient) TestConnection(ctx context.Context) panel.ConnectionStatus {
	if c.adminErr != nil {
		return panel.ConnectionStatus{Error: c.adminErr.Error()}
	}
	return panel.ConnectionStatus{Connected: true, AdminUsername: c.admin.Username, IsSudo: c.admin.IsSudo}
}

func (c *fakePanelClient) GetCurrentAdmin(ctx context.Context) (*panel.AdminInfo, error) {
	if c.adminErr != nil {
		return nil, c.adminErr
	}
	admin := c.admin
	return &admin, nil
}

func (c *fakePanelClient) GetNodeSettings(ctx context.Context) (*panel.NodeSettings, error) {
	if c.settingsErr != nil {
		return nil, c.settingsErr
	}
	return &panel.NodeSettings{Certificate: c.certificate}, nil
}

func (c *fakePanelClient) GetNodes(ctx context.Context) ([]panel.Node, error) {
	if c.getNodesErr != nil {
		return nil, c.getNodesErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]panel.Node, len(c.nodes))
	copy(out, c.nodes)
	return out, nil
}

func (c *fakePanelClient) GetNode(ctx context.Context, id int) (*panel.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range c.nodes {
		if n.ID == id {
			node := n
			return &node, nil
		}
	}
	return nil, &panel.Error{Kind: panel.KindNotFound, Message: "node not found"}
}

func (c *fakePanelClient) CreateNode(ctx context.Context, create panel.NodeCreate) (*panel.Node, error) {
	if c.createErr != nil {
		return nil, c.createErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created = append(c.created, create)
	node := panel.Node{
		ID:      len(c.nodes) + 100,
		Name:    create.Name,
		Address: create.Address,
		Port:    create.Port,
		APIPort: create.APIPort,
		Status:  "connecting",
	}
	c.nodes = append(c.nodes, node)
	return &node, nil
}

func (c *fakePanelClient) UpdateNode(ctx context.Context, id int, fields map[string]interface{}) (*panel.Node, error) {
	return c.GetNode(ctx, id)
}

func (c *fakePanelClient) DeleteNode(ctx context.Context, id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletedIDs = append(c.deletedIDs, id)
	for i, n := range c.nodes {
		if n.ID == id {
			c.nodes = append(c.nodes[:i], c.nodes[i+1:]...)
			return nil
		}
	}
	return &panel.Error{Kind: panel.KindNotFound, Message: "node not found"}
}

func (c *fakePanelClient) ReconnectNode(ctx context.Context, id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconnectIDs = append(c.reconnectIDs, id)
	return nil
}

func (c *fakePanelClient) GetNodesUsage(ctx context.Context) ([]panel.NodeUsage, error) {
	return nil, nil
}

func (c *fakePanelClient) GetSystemStats(ctx context.Context) (*panel.SystemStats, error) {
	stats := c.systemStats
	return &stats, nil
}

func (c *fakePanelClient) Token() *panel.TokenInfo { return nil }
